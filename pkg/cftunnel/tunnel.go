// Package cftunnel builds Cloudflare Zero Trust tunnels that route a private
// network through Cloudflare's edge, and the DNS records pointing at them.
package cftunnel

import (
	"encoding/base64"
	"fmt"

	"github.com/pulumi/pulumi-cloudflare/sdk/v5/go/cloudflare"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// IngressRule maps a hostname and optional path to a local service. A rule
// with only Service set is the catch-all and must come last.
type IngressRule struct {
	Hostname string
	Path     string
	Service  string
}

// IngressRules converts rules to the SDK form, in order.
func IngressRules(rules ...IngressRule) cloudflare.ZeroTrustTunnelCloudflaredConfigConfigIngressRuleArray {
	out := cloudflare.ZeroTrustTunnelCloudflaredConfigConfigIngressRuleArray{}
	for _, r := range rules {
		rule := &cloudflare.ZeroTrustTunnelCloudflaredConfigConfigIngressRuleArgs{
			Service: pulumi.String(r.Service),
		}
		if r.Hostname != "" {
			rule.Hostname = pulumi.StringPtr(r.Hostname)
		}
		if r.Path != "" {
			rule.Path = pulumi.StringPtr(r.Path)
		}
		out = append(out, rule)
	}
	return out
}

// tunnelConfig copies cfg and enables warp routing unless cfg sets it.
func tunnelConfig(cfg *cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs) cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs {
	var out cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs
	if cfg != nil {
		out = *cfg
	}
	if out.WarpRouting == nil {
		out.WarpRouting = &cloudflare.ZeroTrustTunnelCloudflaredConfigConfigWarpRoutingArgs{
			Enabled: pulumi.Bool(true),
		}
	}
	if out.IngressRules == nil {
		out.IngressRules = cloudflare.ZeroTrustTunnelCloudflaredConfigConfigIngressRuleArray{}
	}
	return out
}

// TunnelWithRoute is the result of NewTunnelWithRoute.
type TunnelWithRoute struct {
	pulumiutil.Result[*cloudflare.ZeroTrustTunnelCloudflared, *cloudflare.ZeroTrustTunnelCloudflared]

	Config *cloudflare.ZeroTrustTunnelCloudflaredConfig
	Route  *cloudflare.ZeroTrustTunnelRoute
}

// NewTunnelWithRoute creates a tunnel named <prefix>-tunnel with a generated
// secret, manages its configuration and routes cidr through it. cfg may be
// nil; warp routing is enabled unless cfg sets WarpRouting. Only the tunnel
// waits on waitFor.
func NewTunnelWithRoute(
	ctx *pulumi.Context,
	resourcePrefix string,
	accountID pulumi.StringInput,
	cidr string,
	cfg *cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs,
	waitFor []pulumi.Resource,
) (*TunnelWithRoute, error) {
	password, err := pulumiutil.Password(ctx, fmt.Sprintf("%s-twr-pass", resourcePrefix))
	if err != nil {
		return nil, err
	}
	secret := password.ApplyT(func(pw string) string {
		return base64.StdEncoding.EncodeToString([]byte(pw))
	}).(pulumi.StringOutput)

	tunnel, err := cloudflare.NewZeroTrustTunnelCloudflared(ctx, fmt.Sprintf("%s-twr-tunnel", resourcePrefix), &cloudflare.ZeroTrustTunnelCloudflaredArgs{
		Name:      pulumi.String(fmt.Sprintf("%s-tunnel", resourcePrefix)),
		AccountId: accountID,
		Secret:    secret,
	}, pulumiutil.DependsOn(waitFor)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tunnel: %w", err)
	}

	tunnelConfig, err := cloudflare.NewZeroTrustTunnelCloudflaredConfig(ctx, fmt.Sprintf("%s-twr-config", resourcePrefix), &cloudflare.ZeroTrustTunnelCloudflaredConfigArgs{
		AccountId: accountID,
		TunnelId:  tunnel.ID(),
		Config:    tunnelConfig(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tunnel config: %w", err)
	}

	route, err := cloudflare.NewZeroTrustTunnelRoute(ctx, fmt.Sprintf("%s-twr-route", resourcePrefix), &cloudflare.ZeroTrustTunnelRouteArgs{
		AccountId: accountID,
		TunnelId:  tunnel.ID(),
		Network:   pulumi.String(cidr),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tunnel route: %w", err)
	}

	ctx.Log.Debug(fmt.Sprintf("routing %s through tunnel %s-tunnel", cidr, resourcePrefix), &pulumi.LogArgs{Resource: route})

	return &TunnelWithRoute{
		Result: pulumiutil.Same(tunnel),
		Config: tunnelConfig,
		Route:  route,
	}, nil
}
