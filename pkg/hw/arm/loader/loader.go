// Package loader builds ready-to-run cores from program images.
//
// Two input formats are supported:
//
//   - Raw images (.bin, .img, .rom): the file bytes are copied verbatim to a
//     load address, entry defaults to the load address
//   - Manifests (.yaml, .yml): a YAML description naming one or more image
//     segments, the entry point and the entry encoding
//
// Typical usage:
//
//	result, err := loader.LoadFile("program.bin", nil)
//	if err != nil { ... }
//	result.Core.Run()
//
// The returned core has its entry point applied, so Reset returns to it.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
)

// Options configures program loading
type Options struct {
	// LoadAddress is where a raw image is placed. Manifests carry their
	// own addresses and ignore it.
	LoadAddress uint32

	// Thumb marks the entry point of a raw image as Thumb code
	Thumb bool

	// MemorySize overrides the RAM size. Zero means the default size,
	// or the manifest's size when one is given.
	MemorySize uint32
}

// FileFormat represents the type of program file
type FileFormat int

const (
	// FormatUnknown indicates an unrecognized file extension
	FormatUnknown FileFormat = iota
	// FormatRaw indicates a flat binary image
	FormatRaw
	// FormatManifest indicates a YAML segment manifest
	FormatManifest
)

// DetectFormat guesses the file format from the path extension
func DetectFormat(path string) FileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin", ".img", ".rom":
		return FormatRaw
	case ".yaml", ".yml":
		return FormatManifest
	default:
		return FormatUnknown
	}
}

// Segment describes one image placed into memory
type Segment struct {
	// Path is the image file the bytes came from
	Path string
	// Address is where the first byte was placed
	Address uint32
	// Size is the number of bytes loaded
	Size uint32
}

// Result contains the result of a load operation
type Result struct {
	// Core is the machine with all segments in memory and the entry
	// point applied
	Core *arm.Core

	// Entry is the address execution starts from
	Entry uint32

	// Thumb is true when the entry point is Thumb code
	Thumb bool

	// Format is the detected file format
	Format FileFormat

	// Segments lists the loaded images in load order
	Segments []Segment
}

// Address is a uint32 that unmarshals from YAML integers or strings in
// any base strconv understands, so manifests can write 0x entries.
type Address uint32

// UnmarshalYAML implements yaml.Unmarshaler
func (a *Address) UnmarshalYAML(value *yaml.Node) error {
	var raw uint32
	if err := value.Decode(&raw); err == nil {
		*a = Address(raw)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("address must be an integer or a string: %w", err)
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return fmt.Errorf("bad address %q: %w", s, err)
	}
	*a = Address(parsed)
	return nil
}

// manifest is the on-disk YAML layout
type manifest struct {
	Entry    Address `yaml:"entry"`
	Thumb    bool    `yaml:"thumb"`
	Memory   Address `yaml:"memory"`
	Segments []struct {
		File    string  `yaml:"file"`
		Address Address `yaml:"address"`
	} `yaml:"segments"`
}

// LoadFile loads a program image or manifest into a fresh core
func LoadFile(path string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}

	switch DetectFormat(path) {
	case FormatRaw:
		return loadRaw(path, opts)
	case FormatManifest:
		return loadManifest(path, opts)
	default:
		return nil, fmt.Errorf("cannot tell the format of %q from its extension", path)
	}
}

func newCore(opts *Options, manifestSize uint32) *arm.Core {
	size := arm.DefaultMemorySize
	if manifestSize != 0 {
		size = manifestSize
	}
	if opts.MemorySize != 0 {
		size = opts.MemorySize
	}
	return arm.NewCore(size)
}

func loadRaw(path string, opts *Options) (*Result, error) {
	core := newCore(opts, 0)

	size, err := placeImage(core, path, opts.LoadAddress)
	if err != nil {
		return nil, err
	}

	core.SetEntry(opts.LoadAddress, opts.Thumb)
	return &Result{
		Core:     core,
		Entry:    opts.LoadAddress,
		Thumb:    opts.Thumb,
		Format:   FormatRaw,
		Segments: []Segment{{Path: path, Address: opts.LoadAddress, Size: size}},
	}, nil
}

func loadManifest(path string, opts *Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Segments) == 0 {
		return nil, fmt.Errorf("manifest %s declares no segments", path)
	}

	core := newCore(opts, uint32(m.Memory))
	result := &Result{
		Core:   core,
		Entry:  uint32(m.Entry),
		Thumb:  m.Thumb,
		Format: FormatManifest,
	}

	// segment files resolve relative to the manifest
	base := filepath.Dir(path)
	for _, seg := range m.Segments {
		segPath := seg.File
		if !filepath.IsAbs(segPath) {
			segPath = filepath.Join(base, segPath)
		}
		size, err := placeImage(core, segPath, uint32(seg.Address))
		if err != nil {
			return nil, err
		}
		result.Segments = append(result.Segments, Segment{
			Path:    segPath,
			Address: uint32(seg.Address),
			Size:    size,
		})
	}

	if uint32(m.Entry) >= core.Memory().Size() {
		return nil, fmt.Errorf("entry point 0x%08X lies outside memory", uint32(m.Entry))
	}
	core.SetEntry(uint32(m.Entry), m.Thumb)
	return result, nil
}

// placeImage copies the file bytes into memory at addr
func placeImage(core *arm.Core, path string, addr uint32) (uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("image %s is empty", path)
	}
	if err := core.Memory().WriteBytes(addr, data); err != nil {
		return 0, fmt.Errorf("image %s does not fit at 0x%08X: %w", path, addr, err)
	}
	return uint32(len(data)), nil
}
