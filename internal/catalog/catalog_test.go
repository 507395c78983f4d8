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

package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Lakeshore Retail", c.Store)
	require.Len(t, c.Products, 13)
	assert.Equal(t, "Alpine Trekking Boots", c.Names()[0])
	assert.Equal(t, "Trail Mix Energy Bars", c.Names()[12])
	assert.True(t, c.Contains("Ultralight Tent"))
	assert.False(t, c.Contains("ultralight tent"))
	assert.False(t, c.Contains("Kayak"))
}

func TestListing(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	listing := c.Listing()
	assert.True(t, strings.HasPrefix(listing, "Available Products in Lakeshore Retail Database:\n1. Alpine Trekking Boots - Heavy-duty hiking boots\n"))
	assert.Contains(t, listing, "13. Trail Mix Energy Bars - Hiking snacks\n")
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":     "store: x\nproducts: []\n",
		"no name":   "products:\n  - description: d\n",
		"duplicate": "products:\n  - name: A\n  - name: A\n",
		"bad yaml":  "products: [",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}
