package db

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/require"
)

func TestNewCluster(t *testing.T) {
	req := require.New(t)

	cluster, err := newCluster([]string{"s1:9042", "s2:9042"}, "teamsync")

	req.NoError(err)
	req.Equal([]string{"s1:9042", "s2:9042"}, cluster.Hosts)
	req.Equal("teamsync", cluster.Keyspace)
	req.Equal(gocql.Quorum, cluster.Consistency)
	req.Equal(5*time.Second, cluster.Timeout)
}

func TestNewCluster_Defaults_To_System_Keyspace(t *testing.T) {
	cluster, err := newCluster([]string{"s1:9042"}, "")

	require.NoError(t, err)
	require.Equal(t, "system", cluster.Keyspace)
}

func TestNewCluster_Requires_Hosts(t *testing.T) {
	_, err := newCluster(nil, "teamsync")

	require.ErrorIs(t, err, ErrNoHosts)
}
