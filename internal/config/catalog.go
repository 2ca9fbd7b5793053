package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	custom_errors "repo-dashboard/internal/errors"
	"repo-dashboard/internal/model"
)

// Catalog is the operator-curated list of monitored repositories and tracked packages.
//
//	[[repositories]]
//	owner = "cozy"
//	repo  = "cozy-drive"
//
//	[[tracked_packages]]
//	name   = "react"
//	target = "18.0.0"
type Catalog struct {
	Repositories    []model.RepoIdentifier `toml:"repositories"`
	TrackedPackages []model.TrackedPackage `toml:"tracked_packages"`
}

// ReadCatalog decodes a Catalog from the provided reader and validates its entries.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	for _, repo := range c.Repositories {
		if repo.Owner == "" || repo.Name == "" {
			return nil, &custom_errors.ErrInvalidRepoFormat{Repo: repo.String()}
		}
	}
	for _, pkg := range c.TrackedPackages {
		if pkg.Name == "" {
			return nil, &custom_errors.ErrInvalidTrackedPackage{Entry: pkg.Name + "@" + pkg.Target}
		}
	}
	return &c, nil
}

// ReadCatalogFile reads a Catalog from the specified file path.
func ReadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	c, err := ReadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("reading catalog from %s: %w", path, err)
	}
	return c, nil
}
