package cilium

import (
	"github.com/wippyai/cilium/metadata"
	"github.com/wippyai/cilium/pe"
)

// Parse decodes the PE container in data and the CLI metadata it carries.
// The returned Assembly references data; the caller must not modify it.
func Parse(data []byte) (*metadata.Assembly, error) {
	f, err := pe.Parse(data)
	if err != nil {
		return nil, err
	}
	return metadata.New(f)
}
