// Package registration loads descriptor declarations from a JSON file and
// registers them with a resolver. It is the runtime counterpart of generated
// init-time registration code.
package registration

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"sigaddr/address"
	"sigaddr/resolver"

	"github.com/invopop/jsonschema"
)

// File is a registration file: the signatures of one module.
type File struct {
	Module     string  `json:"module,omitempty" jsonschema:"title=Module,description=Name of the module the signatures are scanned in"`
	Signatures []Entry `json:"signatures" jsonschema:"title=Signatures,description=Descriptors to register"`
}

// Entry is one registration tuple.
type Entry struct {
	Name      string `json:"name" jsonschema:"title=Name,description=Unique descriptor name"`
	Signature string `json:"signature,omitempty" jsonschema:"title=Signature,description=Hex bytes with ?? wildcards,example=48 8B 05 ?? ?? ?? ??"`
	Bytes     string `json:"bytes,omitempty" jsonschema:"title=Bytes,description=Hex byte pattern; must agree with signature when both are set"`
	Mask      string `json:"mask,omitempty" jsonschema:"title=Mask,description=Hex mask for bytes (FF exact / 00 wildcard)"`
	Offset    int64  `json:"offset,omitempty" jsonschema:"title=Offset,description=Signed offset added to the match"`
	Mode      string `json:"mode,omitempty" jsonschema:"title=Mode,enum=direct,enum=pointer,enum=relative,enum=relative_pointer,default=direct"`
	Match     string `json:"match,omitempty" jsonschema:"title=Match,description=Selection policy when several matches exist,enum=unique,enum=first,enum=nth,default=unique"`
	Index     int    `json:"index,omitempty" jsonschema:"title=Index,description=Zero based match index for match=nth,minimum=0"`
}

// Load reads a registration file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registration file: %w", err)
	}
	defer f.Close()

	file, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Decode parses a registration file. Unknown fields are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode registration file: %w", err)
	}
	return &file, nil
}

// Descriptor builds the address descriptor described by e.
func (e Entry) Descriptor() (*address.Descriptor, error) {
	mode, err := address.ParseMode(e.Mode)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", e.Name, err)
	}

	index := address.MatchUnique
	switch e.Match {
	case "", "unique":
	case "first":
		index = 0
	case "nth":
		if e.Index < 0 {
			return nil, fmt.Errorf("%q: negative match index %d", e.Name, e.Index)
		}
		index = e.Index
	default:
		return nil, fmt.Errorf("%q: unknown match policy %q", e.Name, e.Match)
	}

	pattern, err := decodeHex(e.Name, "bytes", e.Bytes)
	if err != nil {
		return nil, err
	}
	mask, err := decodeHex(e.Name, "mask", e.Mask)
	if err != nil {
		return nil, err
	}

	return address.FromTuple(e.Name, e.Signature, pattern, mask, index, e.Offset, mode)
}

// Descriptors builds every descriptor in the file, stopping at the first
// invalid entry.
func (f *File) Descriptors() ([]*address.Descriptor, error) {
	out := make([]*address.Descriptor, 0, len(f.Signatures))
	for _, e := range f.Signatures {
		d, err := e.Descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// RegisterAll registers every entry with r. Nothing is registered when an
// entry is invalid; a registration error stops at the failing entry.
func (f *File) RegisterAll(r *resolver.Resolver) ([]*resolver.StaticAddress, error) {
	descriptors, err := f.Descriptors()
	if err != nil {
		return nil, err
	}

	handles := make([]*resolver.StaticAddress, 0, len(descriptors))
	for _, d := range descriptors {
		h, err := r.Register(d)
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Schema returns the JSON schema of the registration file format.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	return reflector.Reflect(&File{})
}
