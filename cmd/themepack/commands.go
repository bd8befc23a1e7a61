package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provide-io/themepack/go/themepack/internal/atomicfile"
	"github.com/provide-io/themepack/go/themepack/internal/themedir"
	"github.com/provide-io/themepack/go/themepack/pkg"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/archive"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/cache"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/compat"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/components"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/source"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/svgimport"
)

func cacheOptions() cache.Options {
	atlasOpts := cfg.AtlasOptions()
	atlasOpts.Logger = logger
	return cache.Options{Atlas: atlasOpts, Limits: cfg.AssetLimits(), Logger: logger}
}

func componentOptions() components.Options {
	return components.Options{Limits: cfg.AssetLimits(), Logger: logger}
}

// readTable loads a table from an image cache (.png), a theme package
// (.themepkg) or a components directory.
func readTable(src string) (*asset.Table, error) {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".png":
		return cache.ReadFile(src, cacheOptions())
	case themedir.PackageExt:
		table, _, err := pkg.LoadPackage(src, archive.FormatVersion, nil, logger)
		return table, err
	default:
		return components.Load(src, componentOptions())
	}
}

func argOr(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

func newSaveCacheCmd() *cobra.Command {
	var output string
	var sidecar, imageMap bool

	cmd := &cobra.Command{
		Use:   "save-cache [source]",
		Short: "Write the image cache for a theme",
		Long:  `Pack every bitmap of the source theme into one atlas PNG that carries its layout map. The source defaults to the components directory.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := paths()
			table, err := readTable(argOr(args, p.Components()))
			if err != nil {
				return err
			}
			if output == "" {
				if err := p.Ensure(); err != nil {
					return themeerrors.Operational("create theme directory", p.Dir, err)
				}
				output = p.ImageCache()
			}

			opts := cacheOptions()
			if err := cache.WriteFile(output, table, cache.FileOptions{Options: opts, Sidecar: sidecar}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d assets)\n", output, table.Len())

			if imageMap {
				mapPath := strings.TrimSuffix(output, filepath.Ext(output)) + ".htm"
				if err := cache.WriteImageMapFile(mapPath, table, opts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", mapPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Image cache path (defaults to the theme directory)")
	cmd.Flags().BoolVar(&sidecar, "sidecar", false, "Also write the layout map to <output>.layout")
	cmd.Flags().BoolVar(&imageMap, "image-map", false, "Also write an HTML image map next to the cache")
	return cmd
}

func newLoadCacheCmd() *cobra.Command {
	var into string

	cmd := &cobra.Command{
		Use:   "load-cache [cache]",
		Short: "Read an image cache and list its assets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := cache.ReadFile(argOr(args, paths().ImageCache()), cacheOptions())
			if err != nil {
				return err
			}
			if err := printDefinitions(cmd, table); err != nil {
				return err
			}
			if into != "" {
				if _, err := components.Save(table, into, componentOptions()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote components to %s\n", into)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&into, "into", "", "Also save the assets as a components directory")
	return cmd
}

func newImageMapCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "image-map [source]",
		Short: "Write an HTML page showing where each bitmap sits in the atlas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := paths()
			table, err := readTable(argOr(args, p.ImageCache()))
			if err != nil {
				return err
			}
			if output == "" {
				output = p.ImageMap()
			}
			if err := cache.WriteImageMapFile(output, table, cacheOptions()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "HTML path (defaults to the theme directory)")
	return cmd
}

func newSaveComponentsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "save-components [source]",
		Short: "Write a theme as one PNG per bitmap plus a manifest",
		Long:  `Write the source theme as an editable components directory. The source defaults to the image cache.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := paths()
			table, err := readTable(argOr(args, p.ImageCache()))
			if err != nil {
				return err
			}
			if output == "" {
				output = p.Components()
			}
			n, err := components.Save(table, output, componentOptions())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d files to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Components directory (defaults to the theme directory)")
	return cmd
}

func newLoadComponentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-components [dir]",
		Short: "Read a components directory and list its assets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := components.Load(argOr(args, paths().Components()), componentOptions())
			if err != nil {
				return err
			}
			return printDefinitions(cmd, table)
		},
	}
}

func printDefinitions(cmd *cobra.Command, table *asset.Table) error {
	defs, err := source.EmitDefinitions(table)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(defs)
	return err
}

func newEmitSourceCmd() *cobra.Command {
	var output, defsOutput, pkgName string

	cmd := &cobra.Command{
		Use:   "emit-source [source]",
		Short: "Write a theme as Go source plus a definitions listing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := paths()
			table, err := readTable(argOr(args, p.Components()))
			if err != nil {
				return err
			}
			if output == "" {
				output = p.Source()
			}
			if defsOutput == "" {
				defsOutput = p.Definitions()
			}

			src, err := source.EmitSource(table, source.Options{Package: pkgName, Cache: cacheOptions(), Logger: logger})
			if err != nil {
				return err
			}
			defs, err := source.EmitDefinitions(table)
			if err != nil {
				return err
			}
			for _, f := range []struct {
				path string
				data []byte
			}{{output, src}, {defsOutput, defs}} {
				if err := atomicfile.WriteFile(f.path, f.data, 0o644, logger); err != nil {
					return themeerrors.Operational("write", f.path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", f.path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Go source path (defaults to the theme directory)")
	cmd.Flags().StringVar(&defsOutput, "defs", "", "Definitions listing path (defaults to the theme directory)")
	cmd.Flags().StringVar(&pkgName, "package", source.DefaultPackage, "Go package name")
	return cmd
}

func newPackCmd() *cobra.Command {
	var output, name, description, operations, integrity string
	var minCompatible uint32

	cmd := &cobra.Command{
		Use:   "pack [source]",
		Short: "Write a theme package",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := paths()
			table, err := readTable(argOr(args, p.Components()))
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("operations") {
				cfg.Operations = operations
			}
			if cmd.Flags().Changed("integrity") {
				cfg.Integrity = integrity
			}
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}

			w, err := archive.NewWriter(archive.WriteOptions{
				Operations: cfg.Operations,
				Checksum:   cfg.ChecksumAlgorithm(),
				Tool:       "themepack",
				Version:    version,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(p.Dir, name+themedir.PackageExt)
			}
			meta := archive.Metadata{
				MinCompatibleVersion: compat.Version(minCompatible),
				Theme:                archive.ThemeInfo{Name: name, Description: description},
			}
			if err := w.Write(table, meta, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d assets)\n", output, table.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Package path (defaults to <theme-dir>/<name>.themepkg)")
	cmd.Flags().StringVar(&name, "name", "theme", "Theme name")
	cmd.Flags().StringVar(&description, "description", "", "Theme description")
	cmd.Flags().StringVar(&operations, "operations", "", "Payload operations, e.g. zstd or bzip2|zstd")
	cmd.Flags().StringVar(&integrity, "integrity", "", "Integrity algorithm (sha256, sha512, blake2b, adler32)")
	cmd.Flags().Uint32Var(&minCompatible, "min-compatible", 0, "Oldest format version that may read the package (defaults to this version)")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var running uint32
	var knownFrom string

	cmd := &cobra.Command{
		Use:   "verify <package>",
		Short: "Check a theme package and report whether it can be loaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var known asset.IDSet
			if knownFrom != "" {
				table, err := readTable(knownFrom)
				if err != nil {
					return err
				}
				known = table.KnownIDs()
			}

			report, err := pkg.VerifyPackageWithLogger(args[0], compat.Version(running), known, logger)
			out := cmd.OutOrStdout()
			if report.Metadata != nil {
				fmt.Fprintf(out, "Theme:   %s\n", report.Metadata.Theme.Name)
				fmt.Fprintf(out, "Format:  %d (min compatible %d)\n", report.Metadata.FormatVersion, report.Metadata.MinCompatibleVersion)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Status:  %s\n", report.Outcome.Status)
			fmt.Fprintf(out, "Assets:  %d\n", report.Assets)
			for _, id := range report.Outcome.Dropped {
				fmt.Fprintf(out, "Dropped: %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().Uint32Var(&running, "running", uint32(archive.FormatVersion), "Format version to check against")
	cmd.Flags().StringVar(&knownFrom, "known", "", "Theme whose ids the reader knows (all ids when empty)")
	return cmd
}

func newImportSVGCmd() *cobra.Command {
	var into, id, role string
	var width, height int
	var strict bool

	cmd := &cobra.Command{
		Use:   "import-svg <file.svg>...",
		Short: "Rasterise SVG files into bitmaps of a components directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id != "" && len(args) > 1 {
				return usageError{fmt.Errorf("--id needs exactly one file")}
			}
			r, err := asset.ParseRole(role)
			if err != nil {
				return usageError{err}
			}
			if into == "" {
				into = paths().Components()
			}

			table := asset.NewTable()
			if _, statErr := os.Stat(filepath.Join(into, components.ManifestName)); statErr == nil {
				if table, err = components.Load(into, componentOptions()); err != nil {
					return err
				}
			}

			opts := svgimport.Options{
				Width:  width,
				Height: height,
				Role:   r,
				Strict: strict,
				Limits: cfg.AssetLimits(),
				Logger: logger,
			}
			for _, path := range args {
				a, err := svgimport.ImportFile(path, asset.ID(id), opts)
				if err != nil {
					return err
				}
				table.Put(a)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as %s\n", path, a.ID())
			}

			_, err = components.Save(table, into, componentOptions())
			return err
		},
	}

	cmd.Flags().StringVar(&into, "into", "", "Components directory (defaults to the theme directory)")
	cmd.Flags().StringVar(&id, "id", "", "Asset id (defaults to the file name without .svg)")
	cmd.Flags().StringVar(&role, "role", "icon", "Bitmap role (icon or other)")
	cmd.Flags().IntVar(&width, "width", 0, "Output width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Output height in pixels")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on SVG features the rasteriser does not support")
	return cmd
}
