//go:build bench
// +build bench

package paragraph

import (
	"strings"
	"testing"
)

var benchRecords = []struct {
	name string
	info *Info
}{
	{"empty", &Info{}},
	{"small", New("2A94M5J1Z", "paragraph_1423500782552_-1439281894", "Intro", "%md\n# Hello")},
	{"large", New("2A94M5J1Z", "paragraph_1423500782552_-1439281894", strings.Repeat("t", 100), strings.Repeat("x", 10000))},
}

func BenchmarkCodecs_Marshal(b *testing.B) {
	for _, c := range []Codec{TaggedCodec{}, PositionalCodec{}, JSONCodec{}} {
		for _, bm := range benchRecords {
			b.Run(c.Name()+"/"+bm.name, func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := c.Marshal(bm.info); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkCodecs_Unmarshal(b *testing.B) {
	for _, c := range []Codec{TaggedCodec{}, PositionalCodec{}, JSONCodec{}} {
		for _, bm := range benchRecords {
			data, err := c.Marshal(bm.info)
			if err != nil {
				b.Fatal(err)
			}
			b.Run(c.Name()+"/"+bm.name, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(data)))
				for i := 0; i < b.N; i++ {
					if _, err := c.Unmarshal(data); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkInfo_Hash(b *testing.B) {
	info := benchRecords[1].info
	for i := 0; i < b.N; i++ {
		_ = info.Hash()
	}
}
