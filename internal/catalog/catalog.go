// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog holds the fixed product catalog that the product
// matching step is constrained to.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Product is one catalog entry.
type Product struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Catalog is an ordered, immutable product list.
type Catalog struct {
	Store    string    `yaml:"store"`
	Products []Product `yaml:"products"`

	index map[string]struct{}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embedded)
	})
	return defaultCatalog, defaultErr
}

// Parse decodes a catalog from YAML. Names must be non-empty and unique.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	c.index = make(map[string]struct{}, len(c.Products))
	for i, p := range c.Products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("product %d has no name", i+1)
		}
		if _, dup := c.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate product %q", p.Name)
		}
		c.index[p.Name] = struct{}{}
	}
	return &c, nil
}

// Names returns product names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Products))
	for i, p := range c.Products {
		names[i] = p.Name
	}
	return names
}

// Contains reports whether name is an exact catalog product name.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Listing renders the numbered product list embedded in prompts.
func (c *Catalog) Listing() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Available Products in %s Database:\n", c.Store)
	for i, p := range c.Products {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, p.Name, p.Description)
	}
	return b.String()
}
