package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/AnthonyAndroulakis/matlab"
	"github.com/AnthonyAndroulakis/matlab/internal/logger"
)

const previewLimit = 6

type fileSummary struct {
	Path    string         `json:"path"`
	Header  string         `json:"header"`
	Version uint16         `json:"version"`
	Arrays  []arraySummary `json:"arrays"`
}

type arraySummary struct {
	Name     string  `json:"name"`
	Class    string  `json:"class"`
	Dims     []int32 `json:"dims"`
	Complex  bool    `json:"complex,omitempty"`
	Logical  bool    `json:"logical,omitempty"`
	Global   bool    `json:"global,omitempty"`
	Elements int     `json:"elements"`
	Preview  string  `json:"preview,omitempty"`
}

func inspectCmd() *cli.Command {
	var (
		path   string
		only   []string
		asJSON bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print the header and top-level arrays of a .mat file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .mat file",
				Destination: &path,
				Required:    true,
			},
			&cli.StringSliceFlag{Name: "only", Usage: "decode only the named arrays", Destination: &only},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table", Destination: &asJSON},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)

			f, err := matlab.Open(path,
				matlab.WithFilter(matlab.NewNameFilter(only...)),
				matlab.WithLogger(codecLogger()),
			)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Debug("decoded file", "path", path, "arrays", len(f.GetVarsNames()))

			fs := summarizeFile(path, f)
			if asJSON {
				return printJSON(os.Stdout, fs)
			}
			printSummary(os.Stdout, fs)
			return nil
		},
	}
}

func summarizeFile(path string, f *matlab.File) fileSummary {
	fs := fileSummary{
		Path:    path,
		Header:  f.Header.String(),
		Version: f.Header.Version,
		Arrays:  []arraySummary{},
	}
	for _, m := range f.Arrays() {
		fs.Arrays = append(fs.Arrays, summarize(m))
	}
	return fs
}

func summarize(m *matlab.Matrix) arraySummary {
	return arraySummary{
		Name:     m.Name,
		Class:    m.Class.String(),
		Dims:     m.Dimension,
		Complex:  m.Complex,
		Logical:  m.Logical,
		Global:   m.Global,
		Elements: m.NumElements(),
		Preview:  preview(m),
	}
}

func preview(m *matlab.Matrix) string {
	switch {
	case m.Class == matlab.ClassChar:
		return strconv.Quote(m.Text())
	case m.Class == matlab.ClassCell:
		return fmt.Sprintf("%d cells", len(m.Cells))
	case m.Class == matlab.ClassStruct:
		return "fields: " + strings.Join(m.Fields, ", ")
	case m.Class == matlab.ClassSparse:
		return fmt.Sprintf("%d nonzeros", m.Sparse.NonZeros())
	case m.Class.IsNumeric():
		s := previewSlice(m.Real)
		if m.Complex {
			s += " + i" + previewSlice(m.Imag)
		}
		return s
	default:
		return ""
	}
}

func previewSlice(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return ""
	}
	n := min(rv.Len(), previewLimit)
	s := fmt.Sprint(rv.Slice(0, n).Interface())
	if rv.Len() > n {
		s = strings.TrimSuffix(s, "]") + " ...]"
	}
	return s
}

func dimsString(dims []int32) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, "x")
}

func printSummary(w io.Writer, fs fileSummary) {
	fmt.Fprintf(w, "File: %s\n", fs.Path)
	fmt.Fprintf(w, "Header: %s\n", fs.Header)
	fmt.Fprintf(w, "Version: 0x%04x\n", fs.Version)
	fmt.Fprintf(w, "Arrays: %d\n\n", len(fs.Arrays))
	for _, a := range fs.Arrays {
		var attrs []string
		if a.Complex {
			attrs = append(attrs, "complex")
		}
		if a.Logical {
			attrs = append(attrs, "logical")
		}
		if a.Global {
			attrs = append(attrs, "global")
		}
		class := a.Class
		if len(attrs) > 0 {
			class += " (" + strings.Join(attrs, ", ") + ")"
		}
		fmt.Fprintf(w, "  %-16s %-36s %-10s %s\n", a.Name, class, dimsString(a.Dims), a.Preview)
	}
}

func printJSON(w io.Writer, fs fileSummary) error {
	data, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: encode json: %v", err), 1)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
