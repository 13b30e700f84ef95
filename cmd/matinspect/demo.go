package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/AnthonyAndroulakis/matlab"
	"github.com/AnthonyAndroulakis/matlab/internal/logger"
)

// demoSelection lists which sample arrays the demo file contains.
type demoSelection struct {
	Cell, Struct, Char, Sparse   bool
	Double, Single               bool
	Int8, UInt8, Int16, UInt16   bool
	Int32, UInt32, Int64, UInt64 bool
	Imag                         bool
}

// selectAll returns a selection with every array set to on.
func selectAll(on bool) demoSelection {
	return demoSelection{
		Cell: on, Struct: on, Char: on, Sparse: on,
		Double: on, Single: on,
		Int8: on, UInt8: on, Int16: on, UInt16: on,
		Int32: on, UInt32: on, Int64: on, UInt64: on,
		Imag: on,
	}
}

func demoCmd() *cli.Command {
	var (
		out      string
		all      bool
		sel      demoSelection
		compress bool
		level    int
		seed     uint64
	)

	return &cli.Command{
		Name:  "demo",
		Usage: "Write a .mat file holding sample arrays of every class",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "path of the .mat file to create",
				Destination: &out,
				Required:    true,
			},
			&cli.BoolFlag{Name: "all", Usage: "include every sample array", Destination: &all},
			&cli.BoolFlag{Name: "cell", Usage: "5x1 cell array of strings", Destination: &sel.Cell},
			&cli.BoolFlag{Name: "struct", Usage: "1x1 structure with uint8 fields", Destination: &sel.Struct},
			&cli.BoolFlag{Name: "char", Usage: "character array", Destination: &sel.Char},
			&cli.BoolFlag{Name: "sparse", Usage: "3x3 sparse diagonal", Destination: &sel.Sparse},
			&cli.BoolFlag{Name: "double", Usage: "double extremes", Destination: &sel.Double},
			&cli.BoolFlag{Name: "single", Usage: "single extremes", Destination: &sel.Single},
			&cli.BoolFlag{Name: "int8", Usage: "int8 extremes", Destination: &sel.Int8},
			&cli.BoolFlag{Name: "uint8", Usage: "uint8 extremes", Destination: &sel.UInt8},
			&cli.BoolFlag{Name: "int16", Usage: "int16 extremes", Destination: &sel.Int16},
			&cli.BoolFlag{Name: "uint16", Usage: "uint16 extremes", Destination: &sel.UInt16},
			&cli.BoolFlag{Name: "int32", Usage: "int32 extremes", Destination: &sel.Int32},
			&cli.BoolFlag{Name: "uint32", Usage: "uint32 extremes", Destination: &sel.UInt32},
			&cli.BoolFlag{Name: "int64", Usage: "int64 extremes", Destination: &sel.Int64},
			&cli.BoolFlag{Name: "uint64", Usage: "uint64 extremes", Destination: &sel.UInt64},
			&cli.BoolFlag{Name: "complex", Usage: "400x5 complex int64 matrix", Destination: &sel.Imag},
			&cli.BoolFlag{Name: "compress", Usage: "zlib-compress every array", Destination: &compress},
			&cli.IntFlag{Name: "compression-level", Usage: "zlib level (-2 to 9)", Value: -1, Destination: &level},
			&cli.Uint64Flag{Name: "seed", Usage: "seed for the complex matrix (0 = time based)", Destination: &seed},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			applyDemoConfig(c, LoadConfig(), &compress, &level)

			if all {
				sel = selectAll(true)
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			arrays := demoArrays(sel, rand.New(rand.NewPCG(seed, seed)))
			if len(arrays) == 0 {
				return cli.Exit("error: select at least one array (or --all)", 1)
			}

			opts := []matlab.Option{matlab.WithLogger(codecLogger())}
			if compress {
				opts = append(opts, matlab.WithCompressionLevel(level))
			}
			if err := matlab.WriteFile(out, arrays, opts...); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			log.Info("wrote mat file", "path", out, "arrays", len(arrays), "compressed", compress)
			for _, m := range arrays {
				a := summarize(m)
				fmt.Printf("  %-8s %-26s %s\n", a.Name, a.Class, dimsString(a.Dims))
			}
			return nil
		},
	}
}

// demoArrays builds the selected sample arrays in a fixed order.
func demoArrays(sel demoSelection, rng *rand.Rand) []*matlab.Matrix {
	var arrays []*matlab.Matrix
	if sel.Cell {
		arrays = append(arrays, demoCell())
	}
	if sel.Struct {
		arrays = append(arrays, demoStruct())
	}
	if sel.Char {
		arrays = append(arrays, matlab.NewChar("AName", "Hello from Go!"))
	}
	if sel.Sparse {
		arrays = append(arrays, matlab.NewSparse("S", 3, 3, []matlab.SparseEntry{
			{Row: 0, Col: 0, Real: 1.5},
			{Row: 1, Col: 1, Real: 2.5},
			{Row: 2, Col: 2, Real: 3.5},
		}, false))
	}
	pair := []int32{1, 2}
	if sel.Double {
		arrays = append(arrays, matlab.NewDouble("Double", pair, []float64{math.MaxFloat64, -math.MaxFloat64}))
	}
	if sel.Single {
		arrays = append(arrays, matlab.NewNumeric("Single", pair, []float32{-math.MaxFloat32, math.MaxFloat32}))
	}
	if sel.Int8 {
		arrays = append(arrays, matlab.NewNumeric("Int8", pair, []int8{math.MinInt8, math.MaxInt8}))
	}
	if sel.UInt8 {
		arrays = append(arrays, matlab.NewNumeric("UInt8", pair, []uint8{0, math.MaxUint8}))
	}
	if sel.Int16 {
		arrays = append(arrays, matlab.NewNumeric("Int16", pair, []int16{math.MinInt16, math.MaxInt16}))
	}
	if sel.UInt16 {
		arrays = append(arrays, matlab.NewNumeric("UInt16", pair, []uint16{0, math.MaxUint16}))
	}
	if sel.Int32 {
		arrays = append(arrays, matlab.NewNumeric("Int32", pair, []int32{math.MinInt32, math.MaxInt32}))
	}
	if sel.UInt32 {
		arrays = append(arrays, matlab.NewNumeric("UInt32", pair, []uint32{0, math.MaxUint32}))
	}
	if sel.Int64 {
		arrays = append(arrays, matlab.NewNumeric("Int64", pair, []int64{math.MinInt64, math.MaxInt64}))
	}
	if sel.UInt64 {
		arrays = append(arrays, matlab.NewNumeric("UInt64", pair, []uint64{0, math.MaxUint64}))
	}
	if sel.Imag {
		arrays = append(arrays, demoComplex(rng))
	}
	return arrays
}

func demoCell() *matlab.Matrix {
	names := []string{"Hello", "World", "I am", "a", "MAT-file"}
	cell := matlab.NewCell("Names", []int32{int32(len(names)), 1})
	for i, n := range names {
		_ = cell.SetCell(i, matlab.NewChar("", n))
	}
	return cell
}

func demoStruct() *matlab.Matrix {
	s := matlab.NewStruct("X", []int32{1, 1})
	for i, f := range []string{"w", "y", "z"} {
		_ = s.SetField(f, 0, matlab.NewNumeric("", []int32{1, 1}, []uint8{uint8(i + 1)}))
	}
	return s
}

func demoComplex(rng *rand.Rand) *matlab.Matrix {
	const n, rows = 2000, 400
	re := make([]int64, n)
	im := make([]int64, n)
	for i := range re {
		re[i] = int64(int32(rng.Uint32()))
		im[i] = int64(int32(rng.Uint32()))
	}
	return matlab.NewComplex("IA", []int32{rows, n / rows}, re, im)
}
