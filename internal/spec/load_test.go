package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: prod
account: "123456789012"
region: eu-central-1
node_groups:
  - id: workers
    instance_type: m5.xlarge
    min_size: 1
    max_size: 5
    desired_size: 2
addons:
  - name: vpc-cni
  - name: coredns
    depends_on: [vpc-cni]
teams:
  - name: platform
    bindings:
      - principal: arn:aws:iam::123456789012:role/platform
        access_level: admin
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "prod", s.Name)
	assert.Equal(t, "123456789012", s.Account)
	assert.Equal(t, NetworkModeCreateNew, s.Network.Mode, "defaults applied")
	require.Len(t, s.NodeGroups, 1)
	assert.Equal(t, PlacementPrivate, s.NodeGroups[0].Placement)
	require.Len(t, s.AddOns, 2)
	assert.Equal(t, []string{"vpc-cni"}, s.AddOns[1].DependsOn)
	require.Len(t, s.Teams, 1)
	assert.Equal(t, AccessAdmin, s.Teams[0].Bindings[0].AccessLevel)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestParse_InvalidSpec(t *testing.T) {
	_, err := Parse([]byte("name: prod\n"))
	require.Error(t, err)

	var ise *InvalidSpecError
	assert.ErrorAs(t, err, &ise)
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "konverge.yaml")

	original, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, Write(original, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.Hash(), loaded.Hash())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
