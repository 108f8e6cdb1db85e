package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	cases := map[string]struct {
		data        string
		expected    *Config
		expectedErr bool
	}{
		"Empty": {
			data:     "",
			expected: Default(),
		},
		"Full": {
			data: `
name = "drbd0"
sector_size = 4096
max_in_flight = 64
policy = "shared-reads"
`,
			expected: &Config{Name: "drbd0", SectorSize: 4096, MaxInFlight: 64, Policy: PolicySharedReads},
		},
		"Partial": {
			data:     `max_in_flight = 8`,
			expected: &Config{Name: DefaultName, SectorSize: DefaultSectorSize, MaxInFlight: 8, Policy: PolicyExclusive},
		},
		"BadSectorSize": {
			data:        `sector_size = 1000`,
			expectedErr: true,
		},
		"BadPolicy": {
			data:        `policy = "anything"`,
			expectedErr: true,
		},
		"UnknownKey": {
			data:        `sectors = 10`,
			expectedErr: true,
		},
		"Syntax": {
			data:        `name = `,
			expectedErr: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Decode(tc.data)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if diff := cmp.Diff(tc.expected, c); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extent.toml")
	assert.NoError(t, os.WriteFile(path, []byte("name = \"vol1\"\nmax_in_flight = 2\n"), 0o644))

	c, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "vol1", c.Name)
	assert.Equal(t, int64(2), c.MaxInFlight)
	assert.Equal(t, uint32(DefaultSectorSize), c.SectorSize)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := &Config{}
	err := c.Validate()
	assert.Error(t, err)
	// every problem is reported
	for _, s := range []string{"name", "sector_size", "max_in_flight", "policy"} {
		assert.Contains(t, err.Error(), s)
	}
	assert.NoError(t, Default().Validate())
}
