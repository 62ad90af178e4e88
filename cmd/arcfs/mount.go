package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yamatt/arcfs/internal/fusefs"
)

// checkFuseAvailability checks if FUSE libraries are installed and available.
// It verifies both the fusermount command and /dev/fuse device.
func checkFuseAvailability(logger *slog.Logger) error {
	// Check for fusermount command
	_, err := exec.LookPath("fusermount")
	if err != nil {
		_, err = exec.LookPath("fusermount3")
	}
	if err != nil {
		return fmt.Errorf("fusermount command not found. Please install FUSE libraries:\n" +
			"  Debian/Ubuntu: sudo apt-get install fuse3\n" +
			"  Fedora/RHEL:   sudo dnf install fuse3\n" +
			"  Arch Linux:    sudo pacman -S fuse3")
	}

	// Check for /dev/fuse device
	if _, err := os.Stat("/dev/fuse"); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("/dev/fuse not found. FUSE kernel module may not be loaded.\n" +
				"Try loading it with: sudo modprobe fuse")
		}
		return fmt.Errorf("error accessing /dev/fuse: %w", err)
	}

	logger.Debug("FUSE libraries available")
	return nil
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

func newMountCmd() *cobra.Command {
	var opts fusefs.MountOptions
	cmd := &cobra.Command{
		Use:   "mount TARGET MOUNTPOINT",
		Short: "Mount the archive read-only with FUSE",
		Long: `mount presents the archive at MOUNTPOINT as a directory holding the decoded
entry. It runs until interrupted and then unmounts.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()

			mountPoint, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("error resolving mount point path: %w", err)
			}
			// Ensure mount point exists and is a directory
			mountInfo, err := os.Stat(mountPoint)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("mount point does not exist: %s", mountPoint)
				}
				return fmt.Errorf("error accessing mount point: %w", err)
			}
			if !mountInfo.IsDir() {
				return fmt.Errorf("mount point is not a directory: %s", mountPoint)
			}

			// Check if FUSE libraries are installed
			if err := checkFuseAvailability(logger); err != nil {
				return fmt.Errorf("FUSE not available: %w", err)
			}

			_, fsys, err := resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() {
				if err := fsys.Close(); err != nil {
					logger.Error("error closing filesystem", "error", err)
				}
			}()

			server, err := fusefs.Mount(fsys, mountPoint, opts)
			if err != nil {
				return fmt.Errorf("failed to mount filesystem: %w", err)
			}

			logger.Info("filesystem mounted successfully, press Ctrl+C to unmount")

			// The command context ends on SIGINT or SIGTERM
			go func() {
				<-cmd.Context().Done()
				logger.Info("received signal, unmounting...")
				if err := server.Unmount(); err != nil {
					logger.Error("error unmounting", "error", err)
				}
			}()
			server.Wait()

			logger.Info("filesystem unmounted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.AllowOther, "allow-other", false, "Allow other users to access the mounted filesystem (requires user_allow_other in /etc/fuse.conf)")
	cmd.Flags().BoolVar(&opts.Debug, "fuse-debug", false, "Log every FUSE request")
	return cmd
}
