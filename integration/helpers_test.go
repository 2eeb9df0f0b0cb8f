//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/xar"
	"github.com/meigma/xar/internal/testutil"
)

const (
	minioImage     = "minio/minio:RELEASE.2024-01-16T16-07-38Z"
	minioAccessKey = "xar-test"
	minioSecretKey = "xar-test-secret"
	minioRegion    = "us-east-1"
)

// --- MinIO Container Setup ---

var (
	minioOnce     sync.Once
	minioEndpoint string
	minioErr      error
)

// getMinIO returns the shared MinIO endpoint URL, starting the container if needed.
// The container is shared across all tests.
func getMinIO(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	minioOnce.Do(func() {
		minioEndpoint, minioErr = startMinIOContainer(context.Background())
	})

	if minioErr != nil {
		tb.Fatalf("start minio container: %v", minioErr)
	}

	return minioEndpoint
}

// startMinIOContainer starts a single-node MinIO server and returns its http:// endpoint.
func startMinIOContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        minioImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioAccessKey,
			"MINIO_ROOT_PASSWORD": minioSecretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStatusCodeMatcher(isOKStatus),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start minio container: %w", err)
	}

	// Cleanup is left to the testcontainers reaper.

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve minio host: %w", err)
	}

	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve minio port: %w", err)
	}

	return fmt.Sprintf("http://%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// --- S3 Helpers ---

// newS3Client returns a path-style client for the MinIO endpoint.
func newS3Client(endpoint string) *awss3.Client {
	return awss3.New(awss3.Options{
		Region:       minioRegion,
		Credentials:  credentials.NewStaticCredentialsProvider(minioAccessKey, minioSecretKey, ""),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
	})
}

// createBucket makes a bucket named after the test.
func createBucket(tb testing.TB, client *awss3.Client) string {
	tb.Helper()

	bucket := strings.ToLower(strings.NewReplacer("/", "-", "_", "-").Replace(tb.Name()))
	_, err := client.CreateBucket(context.Background(), &awss3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	require.NoError(tb, err, "create bucket %s", bucket)
	return bucket
}

// putObject uploads data under key.
func putObject(tb testing.TB, client *awss3.Client, bucket, key string, data []byte) {
	tb.Helper()

	_, err := client.PutObject(context.Background(), &awss3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/x-xar"),
	})
	require.NoError(tb, err, "put s3://%s/%s", bucket, key)
}

// --- Archive Helpers ---

// testTree is the directory packed by every test.
var testTree = map[string]string{
	"README.md":          "# fixture\n",
	"src/main.go":        strings.Repeat("package main\n", 200),
	"src/util/helper.go": "package util\n",
	"data/blob.bin":      "\x00\x01\x02\x03\xff",
	"data/empty.txt":     "",
}

// packTree packs testTree with sha1 checksums and returns the archive bytes.
func packTree(tb testing.TB) []byte {
	tb.Helper()

	dir := tb.TempDir()
	testutil.WriteTree(tb, dir, testTree)

	var buf bytes.Buffer
	require.NoError(tb, xar.Pack(context.Background(), dir, &buf, xar.PackWithChecksum(xar.ChecksumSHA1)))
	return buf.Bytes()
}

// requireTree asserts that dir holds exactly the content of testTree.
func requireTree(tb testing.TB, dir string) {
	tb.Helper()

	for name, want := range testTree {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		require.NoError(tb, err, name)
		require.Equal(tb, want, string(got), name)
	}
}
