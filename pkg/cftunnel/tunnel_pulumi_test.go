package cftunnel

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/pulumi/pulumi-cloudflare/sdk/v5/go/cloudflare"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yevai/pulumi-kit/internal/pulumitest"
	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

const getZoneToken = "cloudflare:index/getZone:getZone"

func healthcheckRules(sub string) *cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs {
	return &cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs{
		IngressRules: IngressRules(
			IngressRule{Hostname: sub + ".example.com", Path: "/api/proxy-healthcheck", Service: "http://localhost"},
			IngressRule{Service: "http_status:404"},
		),
	}
}

func TestNewTunnelWithRoute(t *testing.T) {
	mocks := pulumitest.New()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		twr, err := NewTunnelWithRoute(ctx, "aws", pulumi.String("acct-1"), "10.10.0.0/20", healthcheckRules("aws"), nil)
		require.NoError(t, err)
		assert.Same(t, twr.Result.Result, twr.FinishedOn)
		assert.NotNil(t, twr.Config)
		assert.NotNil(t, twr.Route)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	_, ok := mocks.Named("aws-twr-pass")
	assert.True(t, ok, "tunnel secret should come from a generated password")

	tunnel, ok := mocks.Named("aws-twr-tunnel")
	require.True(t, ok)
	assert.Equal(t, "aws-tunnel", tunnel.String("name"))
	assert.Equal(t, "acct-1", tunnel.String("accountId"))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(pulumitest.MockPassword)), tunnel.String("secret"))

	cfg, ok := mocks.Named("aws-twr-config")
	require.True(t, ok)
	assert.Equal(t, "aws-twr-tunnel_id", cfg.String("tunnelId"))
	config := cfg.Object("config")
	require.NotNil(t, config)
	assert.True(t, config["warpRouting"].ObjectValue()["enabled"].BoolValue())

	rules := config["ingressRules"].ArrayValue()
	require.Len(t, rules, 2)
	first := rules[0].ObjectValue()
	assert.Equal(t, "aws.example.com", pulumitest.StringProp(first["hostname"]))
	assert.Equal(t, "/api/proxy-healthcheck", pulumitest.StringProp(first["path"]))
	assert.Equal(t, "http://localhost", pulumitest.StringProp(first["service"]))
	last := rules[1].ObjectValue()
	assert.Equal(t, "http_status:404", pulumitest.StringProp(last["service"]))
	_, hasHost := last["hostname"]
	assert.False(t, hasHost, "catch-all rule has no hostname")

	route, ok := mocks.Named("aws-twr-route")
	require.True(t, ok)
	assert.Equal(t, "10.10.0.0/20", route.String("network"))
	assert.Equal(t, "aws-twr-tunnel_id", route.String("tunnelId"))
	assert.Equal(t, "acct-1", route.String("accountId"))
}

func TestNewTunnelWithRoute_CallerConfig(t *testing.T) {
	mocks := pulumitest.New()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		_, err := NewTunnelWithRoute(ctx, "aws", pulumi.String("acct-1"), "10.10.0.0/20", &cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs{
			IngressRules: IngressRules(IngressRule{Service: "http_status:404"}),
			OriginRequest: &cloudflare.ZeroTrustTunnelCloudflaredConfigConfigOriginRequestArgs{
				ConnectTimeout: pulumi.String("30s"),
			},
			WarpRouting: &cloudflare.ZeroTrustTunnelCloudflaredConfigConfigWarpRoutingArgs{
				Enabled: pulumi.Bool(false),
			},
		}, nil)
		require.NoError(t, err)

		_, err = NewTunnelWithRoute(ctx, "gcp", pulumi.String("acct-1"), "10.10.16.0/20", nil, nil)
		require.NoError(t, err)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	cfg, ok := mocks.Named("aws-twr-config")
	require.True(t, ok)
	config := cfg.Object("config")
	require.NotNil(t, config)
	assert.False(t, config["warpRouting"].ObjectValue()["enabled"].BoolValue(), "caller warp routing wins")
	assert.Equal(t, "30s", pulumitest.StringProp(config["originRequest"].ObjectValue()["connectTimeout"]))

	defaults, ok := mocks.Named("gcp-twr-config")
	require.True(t, ok)
	config = defaults.Object("config")
	require.NotNil(t, config)
	assert.True(t, config["warpRouting"].ObjectValue()["enabled"].BoolValue())
	assert.Empty(t, config["ingressRules"].ArrayValue())
}

func TestNewTunnelWithRoute_OnlyTunnelWaits(t *testing.T) {
	mocks := pulumitest.New()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		dep, err := pulumiutil.NewPassword(ctx, "network-ready")
		require.NoError(t, err)

		_, err = NewTunnelWithRoute(ctx, "gcp", pulumi.String("acct-1"), "10.10.16.0/20", nil, []pulumi.Resource{dep})
		require.NoError(t, err)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	tunnel, ok := mocks.Named("gcp-twr-tunnel")
	require.True(t, ok)
	assert.True(t, tunnel.DependsOn("network-ready"))

	route, ok := mocks.Named("gcp-twr-route")
	require.True(t, ok)
	assert.False(t, route.DependsOn("network-ready"))
}

func TestZoneHandle(t *testing.T) {
	mocks := pulumitest.New()
	zoneID := pulumitest.NewCapture[string]()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		h, err := ZoneHandle(ctx, "example.com")
		require.NoError(t, err)
		zoneID.Watch(h.StringValue())
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	assert.Equal(t, pulumitest.ZoneID, zoneID.Get(t))
	calls := mocks.CallsTo(getZoneToken)
	require.Len(t, calls, 1)
	assert.Equal(t, "example.com", calls[0].Args["name"].StringValue())

	_, ok := mocks.Named("zone-example.com")
	assert.True(t, ok)
}

func TestRootZone_LookupFailure(t *testing.T) {
	mocks := pulumitest.New()
	mocks.CallErrors = map[string]error{getZoneToken: errors.New("zone not found")}

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		_, err := RootZone(ctx, "missing.example")
		return err
	}, mocks.Options("project", "stack"))
	assert.Error(t, err)
}

func TestNewTunnelCNAME(t *testing.T) {
	mocks := pulumitest.New()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		twr, err := NewTunnelWithRoute(ctx, "azu", pulumi.String("acct-1"), "10.10.32.0/20", nil, nil)
		require.NoError(t, err)

		_, err = NewTunnelCNAME(ctx, DNSRecordName("azu", "example.com"), pulumi.String(pulumitest.ZoneID), "azu", twr.Result.Result)
		require.NoError(t, err)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	record, ok := mocks.Named("azu-example.com-dns")
	require.True(t, ok)
	assert.Equal(t, pulumitest.ZoneID, record.String("zoneId"))
	assert.Equal(t, "azu", record.String("name"))
	assert.Equal(t, "CNAME", record.String("type"))
	assert.Equal(t, pulumitest.TunnelCNAME, record.String("content"))
	assert.True(t, record.Inputs["proxied"].BoolValue())
}
