// Command kmodpack writes a kernel module image to disk. With no symbol
// arguments it packs the full builtin manifest; otherwise the manifest is
// filtered to the named symbols.
//
// Usage:
//
//	kmodpack -o vecadd.kmod -codec zstd Sum SumFloat64
package main

import (
	"flag"
	"fmt"
	"os"

	culite "github.com/culite/culite"
	"github.com/culite/culite/kimage"
)

func main() {
	out := flag.String("o", "module.kmod", "output image path")
	name := flag.String("name", "", "module name (default: builtin manifest name)")
	codec := flag.String("codec", "zstd", "section compression: zstd, lz4, or none")
	notes := flag.String("notes", "", "optional notes section")
	flag.Parse()

	var flags uint32
	switch *codec {
	case "zstd":
		flags = kimage.FlagCompZSTD
	case "lz4":
		flags = kimage.FlagCompLZ4
	case "none":
		flags = 0
	default:
		fmt.Fprintf(os.Stderr, "unknown codec %q\n", *codec)
		os.Exit(2)
	}

	manifest := culite.BuiltinManifest()
	if *name != "" {
		manifest.Name = *name
	}

	if args := flag.Args(); len(args) > 0 {
		selected := make([]kimage.Symbol, 0, len(args))
		for _, want := range args {
			sym, ok := manifest.Lookup(want)
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown kernel symbol %q\n", want)
				os.Exit(2)
			}
			selected = append(selected, sym)
		}
		manifest.Symbols = selected
	}

	w := kimage.NewWriter()
	if err := w.AddManifest(manifest, flags); err != nil {
		fmt.Fprintf(os.Stderr, "packing manifest: %v\n", err)
		os.Exit(1)
	}
	if *notes != "" {
		w.AddSection(kimage.TypeNotes, []byte(*notes), flags)
	}
	if err := w.WriteFile(*out); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s: module %q with %d symbols\n", *out, manifest.Name, len(manifest.Symbols))
}
