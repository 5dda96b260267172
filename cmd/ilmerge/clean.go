package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ilmerge/internal/driver"
	"ilmerge/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [flags] [manifest|dir]",
	Short: "Remove cached images",
	Long:  "Remove the project image cache, or with --user the cache shared by emit --cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("user", false, "clean the user cache directory instead of the project cache")
}

func runClean(cmd *cobra.Command, args []string) error {
	user, err := cmd.Flags().GetBool("user")
	if err != nil {
		return err
	}
	var cache *driver.DiskCache
	if user {
		cache, err = driver.OpenDiskCache("ilmerge")
	} else {
		cache, err = projectCache(args)
	}
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clean %s: %w", cache.Dir(), err)
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "cleaned %s\n", cache.Dir())
	}
	return nil
}

func projectCache(args []string) (*driver.DiskCache, error) {
	path, err := locateManifest(args)
	if err != nil {
		return nil, err
	}
	m, err := project.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	dir := m.CacheDir()
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no cache at %s", formatPathForOutput(m.Root, dir))
	}
	return driver.NewDiskCache(dir)
}
