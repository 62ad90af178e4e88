// Package providers installs one vfs.Provider per supported compression
// format. Import it for its side effect:
//
//	import _ "github.com/yamatt/arcfs/internal/providers"
package providers

import (
	"github.com/yamatt/arcfs/internal/codec"
	"github.com/yamatt/arcfs/internal/vfs"
)

// Codecs lists the formats installed by this package, in probing order.
var Codecs = []codec.Codec{
	codec.Bzip2{},
	codec.Gzip{},
	codec.Zstd{},
	codec.LZ4{},
	codec.RAR{},
}

func init() {
	for _, c := range Codecs {
		vfs.Register(vfs.NewProvider(c))
	}
}
