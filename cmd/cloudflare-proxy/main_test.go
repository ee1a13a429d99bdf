package main

import (
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yevai/pulumi-kit/internal/pulumitest"
)

func TestIngressRules(t *testing.T) {
	rules := IngressRules("gcp", "example.com")
	require.Len(t, rules, 2)
	assert.Equal(t, "gcp.example.com", rules[0].Hostname)
	assert.Equal(t, "/api/proxy-healthcheck", rules[0].Path)
	assert.Equal(t, "http_status:404", rules[1].Service)
	assert.Empty(t, rules[1].Hostname)
}

func TestCIDRRangesCoverProviders(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Providers {
		cidr, ok := CIDRRanges[p]
		require.True(t, ok, string(p))
		assert.False(t, seen[cidr], "ranges must not be shared")
		seen[cidr] = true
	}
}

func TestRun(t *testing.T) {
	t.Setenv("PULUMI_CONFIG", `{"cloudflare-proxy:cloudflareRootTldZone":"example.com","cloudflare-proxy:cloudflareAccountId":"acct-1"}`)
	mocks := pulumitest.New()

	err := pulumi.RunErr(run, mocks.Options("cloudflare-proxy", "dev"))
	require.NoError(t, err)

	for _, p := range Providers {
		sub := string(p)
		_, ok := mocks.Named(sub + "-twr-tunnel")
		assert.True(t, ok, sub)

		route, ok := mocks.Named(sub + "-twr-route")
		require.True(t, ok, sub)
		assert.Equal(t, CIDRRanges[p], route.String("network"))

		record, ok := mocks.Named(sub + "-example.com-dns")
		require.True(t, ok, sub)
		assert.Equal(t, pulumitest.ZoneID, record.String("zoneId"))
		assert.Equal(t, pulumitest.TunnelCNAME, record.String("content"))
	}

	_, ok := mocks.Named("azu-vpc-nic")
	assert.True(t, ok)
	assert.Len(t, mocks.CallsTo("cloudflare:index/getZone:getZone"), 1)
}

func TestRun_MissingConfig(t *testing.T) {
	t.Setenv("PULUMI_CONFIG", "{}")

	err := pulumi.RunErr(run, pulumitest.New().Options("cloudflare-proxy", "dev"))
	assert.Error(t, err)
}
