package toc

import (
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/xar/internal/xartype"
)

const sampleTOC = `<?xml version="1.0" encoding="UTF-8"?>
<xar>
 <toc>
  <checksum style="SHA1">
   <size>20</size>
   <offset>0</offset>
  </checksum>
  <creation-time>2024-03-01T10:20:30Z</creation-time>
  <file id="1">
   <name>dir</name>
   <type>Directory</type>
   <mode>0755</mode>
   <file id="2">
    <name>a.txt</name>
    <type>file</type>
    <mtime>2024-03-01T10:00:00</mtime>
    <finder-create-time>
     <time>2024-02-01T09:00:00</time>
     <nanoseconds>1500</nanoseconds>
    </finder-create-time>
    <data>
     <length>12</length>
     <offset>20</offset>
     <size>5</size>
     <encoding style="application/x-gzip"/>
     <archived-checksum style="sha1">aaaa</archived-checksum>
     <unarchived-checksum style="SHA1">BBBB</unarchived-checksum>
    </data>
    <ea id="0">
     <name>com.apple.quarantine</name>
     <length>3</length>
     <offset>32</offset>
     <size>3</size>
    </ea>
   </file>
  </file>
  <file id="3">
   <name>file.txt</name>
   <type>file</type>
   <unknown-element>ignored</unknown-element>
  </file>
 </toc>
</xar>`

func TestParse(t *testing.T) {
	t.Parallel()

	got, err := Parse([]byte(sampleTOC))
	require.NoError(t, err)

	require.NotNil(t, got.Checksum)
	assert.Equal(t, xartype.ChecksumSHA1, got.Checksum.Style)
	assert.Equal(t, uint64(20), got.Checksum.Size)
	require.NotNil(t, got.CreationTime)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), got.CreationTime.Time)

	require.Len(t, got.Files, 2)
	dir := got.Files[0]
	assert.True(t, dir.IsDir())
	assert.Equal(t, "0755", dir.Mode)
	require.Len(t, dir.Children, 1)

	a := dir.Children[0]
	assert.Equal(t, uint64(2), a.ID)
	assert.False(t, a.IsDir())
	require.NotNil(t, a.MTime)
	assert.False(t, a.MTime.Invalid)
	require.NotNil(t, a.FinderCreateTime)
	assert.Equal(t, int64(1500), a.FinderCreateTime.Nanoseconds)
	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 1500, time.UTC), a.FinderCreateTime.Value())
	require.NotNil(t, a.Data)
	assert.Equal(t, xartype.EncodingGzip, a.Data.EncodingKind())
	assert.Equal(t, uint64(12), a.Data.Length)
	assert.Equal(t, uint64(20), a.Data.Offset)
	assert.Equal(t, uint64(5), a.Data.Size)
	require.NotNil(t, a.Data.Extracted())
	assert.Equal(t, "BBBB", a.Data.Extracted().Value)
	assert.Equal(t, xartype.ChecksumSHA1, a.Data.Extracted().Style)
	require.Len(t, a.EAs, 1)
	assert.Equal(t, "com.apple.quarantine", a.EAs[0].Name)
	assert.Equal(t, uint64(32), a.EAs[0].Offset)

	plain := got.Files[1]
	assert.Nil(t, plain.Data)
	assert.Nil(t, plain.FinderCreateTime)
	assert.True(t, plain.FinderCreateTime.Value().IsZero())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "not xml", doc: "nope"},
		{name: "unknown checksum style", doc: `<xar><toc><checksum style="crc32"><size>4</size><offset>0</offset></checksum></toc></xar>`},
		{name: "unknown type", doc: `<xar><toc><file id="1"><name>x</name><type>symlink</type></file></toc></xar>`},
		{name: "bad id", doc: `<xar><toc><file id="x"><name>x</name></file></toc></xar>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, xartype.ErrTOCParse)
		})
	}
}

func TestParseTimestamps(t *testing.T) {
	t.Parallel()

	doc := []byte(`<xar><toc><creation-time>yesterday</creation-time></toc></xar>`)

	lenient, err := Parse(doc)
	require.NoError(t, err)
	require.NotNil(t, lenient.CreationTime)
	assert.True(t, lenient.CreationTime.Invalid)
	assert.Equal(t, "yesterday", lenient.CreationTime.Raw)
	assert.WithinDuration(t, time.Now(), lenient.CreationTime.Time, time.Minute)

	_, err = Parse(doc, WithStrictTimestamps())
	require.ErrorIs(t, err, xartype.ErrTOCParse)
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2023, 12, 24, 18, 0, 0, 0, time.UTC)
	in := &TOC{
		Checksum:     &Checksum{Style: xartype.ChecksumMD5, Size: 16, Offset: 0},
		CreationTime: NewTimestamp(created),
		Files: []*File{
			{
				ID:   0,
				Name: "dir",
				Type: xartype.TypeDirectory,
				Children: []*File{{
					ID:    1,
					Name:  "a.txt",
					Type:  xartype.TypeFile,
					MTime: NewTimestamp(created),
					Data: &Data{
						Length:            3,
						Offset:            16,
						Size:              3,
						Encoding:          &EncodingStyle{Style: xartype.MIMEOctetStream},
						ArchivedChecksum:  &FileChecksum{Style: xartype.ChecksumMD5, Value: "abc"},
						ExtractedChecksum: &FileChecksum{Style: xartype.ChecksumMD5, Value: "abc"},
					},
				}},
			},
		},
	}

	out, err := Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<checksum style="md5">`)
	assert.Contains(t, string(out), `<creation-time>2023-12-24T18:00:00Z</creation-time>`)
	assert.Contains(t, string(out), `<type>directory</type>`)
	assert.Contains(t, string(out), `<encoding style="application/octet-stream"></encoding>`)

	back, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, back.Files, 1)
	require.Len(t, back.Files[0].Children, 1)
	child := back.Files[0].Children[0]
	assert.Equal(t, "a.txt", child.Name)
	assert.Equal(t, created, child.MTime.Time)
	assert.Equal(t, in.Files[0].Children[0].Data.Length, child.Data.Length)
	assert.Equal(t, "abc", child.Data.Extracted().Value)
}

func TestMarshalRejectsBzip2(t *testing.T) {
	t.Parallel()

	in := &TOC{Files: []*File{{
		Name: "x",
		Data: &Data{Encoding: &EncodingStyle{Style: xartype.MIMEBzip2}},
	}}}
	_, err := Marshal(in)
	require.ErrorIs(t, err, xartype.ErrUnsupportedEncoding)
}

func TestCompressDecompress(t *testing.T) {
	t.Parallel()

	doc := []byte(sampleTOC)
	c, err := Compress(doc, flate.BestCompression)
	require.NoError(t, err)
	assert.Less(t, len(c), len(doc))

	d, err := Decompress(c, uint64(len(doc)))
	require.NoError(t, err)
	assert.Equal(t, doc, d)

	_, err = Decompress(c, uint64(len(doc))-1)
	require.ErrorIs(t, err, xartype.ErrTOCParse)

	_, err = Decompress(c, uint64(len(doc))+1)
	require.ErrorIs(t, err, xartype.ErrTOCParse)

	_, err = Decompress([]byte("not zlib"), 4)
	require.ErrorIs(t, err, xartype.ErrTOCParse)
}
