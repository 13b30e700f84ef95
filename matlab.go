// Package matlab defines readers & writers for working with matlab .mat files
//
// Level 5 MAT-files start with a 128-byte header followed by tagged data
// elements. Every top-level element is either a miMATRIX record holding one
// named array or a miCOMPRESSED zlib stream wrapping such records. Arrays
// nest: cells and structs hold further miMATRIX records.
//
// Only little-endian files are supported; a big-endian header fails with
// ErrUnsupportedByteOrder.
package matlab

import (
	"bufio"
	"io"
	"os"
)

// File represents a decoded .mat matlab file
type File struct {
	Header *Header

	vars  map[string]*Matrix
	names []string
}

// NewFileFromReader reads the header and every top-level array from r.
// Arrays rejected by a WithFilter option are skipped. A later array with the
// same name replaces an earlier one. On error no File is returned.
func NewFileFromReader(r io.Reader, opts ...Option) (*File, error) {
	o := buildOptions(opts)
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	o.log.Debug("read header", "description", h.Description, "version", h.Version)

	d := newDecoder(o)
	if err := d.readElements(r); err != nil {
		return nil, err
	}
	return &File{Header: h, vars: d.vars, names: d.names}, nil
}

// Open decodes the .mat file at path.
func Open(path string, opts ...Option) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr("open", err)
	}
	defer f.Close()
	return NewFileFromReader(bufio.NewReader(f), opts...)
}

// GetVar returns the variable in the mat file
func (f *File) GetVar(name string) (*Matrix, bool) {
	m, found := f.vars[name]
	return m, found
}

// GetVarsNames returns the variable names in the order they first appear in the file.
func (f *File) GetVarsNames() []string {
	return append([]string(nil), f.names...)
}

// Vars returns the name-keyed collection of top-level arrays.
func (f *File) Vars() map[string]*Matrix {
	return f.vars
}

// Arrays returns the top-level arrays in file order.
func (f *File) Arrays() []*Matrix {
	res := make([]*Matrix, 0, len(f.names))
	for _, n := range f.names {
		res = append(res, f.vars[n])
	}
	return res
}
