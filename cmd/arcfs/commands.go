package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/yamatt/arcfs/internal/vfs"
)

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat TARGET",
		Short: "Write the decoded entry to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, fsys, err := resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer fsys.Close()

			rc, err := path.NewInputStream(vfs.OpenRead)
			if err != nil {
				return err
			}
			defer rc.Close()

			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		},
	}
}

func newStatCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stat TARGET",
		Short: "Show the basic attributes of the root or the entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, fsys, err := resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer fsys.Close()

			attrs, err := path.ReadAttributeMap("basic:*")
			if err != nil {
				return err
			}
			attrs["uri"] = path.URI()
			if name := path.FileName(); name != nil {
				if mime, ok := vfs.ProbeContentType(name.String()); ok {
					attrs["contentType"] = mime
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(attrs); err != nil {
					return err
				}
				return enc.Close()
			case "text":
				for _, name := range vfs.SortedAttributeNames(attrs) {
					if _, err := fmt.Fprintf(out, "%-18s %v\n", name+":", attrs[name]); err != nil {
						return err
					}
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, yaml)")
	return cmd
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls TARGET",
		Short: "List the root directory of the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, fsys, err := resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer fsys.Close()

			children, err := fsys.Root().NewDirectoryStream(nil)
			if err != nil {
				return err
			}
			for _, child := range children {
				attrs, err := child.Attributes()
				if err != nil {
					return err
				}
				size := "-"
				if attrs.Size() >= 0 {
					size = fmt.Sprint(attrs.Size())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %10s %s %s\n",
					attrs.Mode(), size, attrs.ModTime().Format("2006-01-02 15:04"), child.FileName())
			}
			return nil
		},
	}
}

func newCpCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "cp TARGET DEST",
		Short: "Decode the entry into a host file",
		Long: `cp decodes the entry into DEST. If DEST is an existing directory the
entry name is appended. The modification time of the compressed file is kept.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, fsys, err := resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer fsys.Close()

			dest := args[1]
			if isDir(dest) && path.IsEntry() {
				dest = filepath.Join(dest, path.FileName().String())
			}
			opts := []vfs.CopyOption{vfs.CopyAttributes}
			if force {
				opts = append(opts, vfs.ReplaceExisting)
			}
			return path.Copy(vfs.HostPath(dest), opts...)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing destination")
	return cmd
}

func newSumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sum TARGET",
		Short: "Print the BLAKE3 digest of the decoded entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, fsys, err := resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer fsys.Close()

			rc, err := path.NewInputStream(vfs.OpenRead)
			if err != nil {
				return err
			}
			defer rc.Close()

			h := blake3.New()
			if _, err := io.Copy(h, rc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", hex.EncodeToString(h.Sum(nil)), path.URI())
			return nil
		},
	}
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE...",
		Short: "Print the content type of each file name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				mime, ok := vfs.ProbeContentType(name)
				if !ok {
					mime = "unknown"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, mime)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "arcfs version %s\n", version)
			for _, p := range vfs.Installed() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-4s %v\n", p.Scheme(), p.Extensions())
			}
			return nil
		},
	}
}
