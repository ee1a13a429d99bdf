// Command cloudflare-proxy is a Pulumi program that opens one Cloudflare
// tunnel per cloud provider, publishes a proxied hostname for each and
// lays down the Azure network the Azure side runs in.
package main

import (
	"fmt"

	"github.com/pulumi/pulumi-cloudflare/sdk/v5/go/cloudflare"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/yevai/pulumi-kit/pkg/azurenet"
	"github.com/yevai/pulumi-kit/pkg/cftunnel"
)

// Provider is a cloud provider short name. It doubles as the subdomain of
// the provider's tunnel.
type Provider string

const (
	AWS   Provider = "aws"
	GCP   Provider = "gcp"
	Azure Provider = "azu"
)

// Providers lists every provider in a fixed order.
var Providers = []Provider{AWS, GCP, Azure}

// CIDRRanges assigns each provider a non-overlapping /20 routed through its tunnel.
var CIDRRanges = map[Provider]string{
	AWS:   "10.10.0.0/20",
	GCP:   "10.10.16.0/20",
	Azure: "10.10.32.0/20",
}

// IngressRules answers the healthcheck path on the provider's hostname and
// rejects everything else.
func IngressRules(subdomain, zone string) []cftunnel.IngressRule {
	return []cftunnel.IngressRule{
		{
			Hostname: fmt.Sprintf("%s.%s", subdomain, zone),
			Path:     "/api/proxy-healthcheck",
			Service:  "http://localhost",
		},
		{Service: "http_status:404"},
	}
}

func main() {
	pulumi.Run(run)
}

func run(ctx *pulumi.Context) error {
	cfg := config.New(ctx, "")
	rootZone, err := cfg.Try("cloudflareRootTldZone")
	if err != nil {
		return fmt.Errorf("failed to read cloudflareRootTldZone: %w", err)
	}
	accountID, err := cfg.Try("cloudflareAccountId")
	if err != nil {
		return fmt.Errorf("failed to read cloudflareAccountId: %w", err)
	}

	zone, err := cftunnel.ZoneHandle(ctx, rootZone)
	if err != nil {
		return err
	}

	hostnames := pulumi.StringMap{}
	for _, p := range Providers {
		sub := string(p)
		tunnel, err := cftunnel.NewTunnelWithRoute(ctx, sub, pulumi.String(accountID), CIDRRanges[p], &cloudflare.ZeroTrustTunnelCloudflaredConfigConfigArgs{
			IngressRules: cftunnel.IngressRules(IngressRules(sub, rootZone)...),
		}, nil)
		if err != nil {
			return err
		}

		if _, err := cftunnel.NewTunnelCNAME(ctx, cftunnel.DNSRecordName(sub, rootZone), zone.StringValue(), sub, tunnel.FinishedOn); err != nil {
			return err
		}
		hostnames[sub] = pulumi.String(fmt.Sprintf("%s.%s", sub, rootZone))
	}

	network, err := azurenet.NewNetwork(ctx, "azu-vpc", azurenet.NetworkArgs{
		Location:    "eastus",
		VnetCIDRs:   []string{"10.0.0.0/16"},
		SubnetCIDRs: []string{"10.0.1.0/24"},
	}, nil)
	if err != nil {
		return err
	}

	ctx.Export("hostnames", hostnames)
	ctx.Export("azureNicId", network.NicID)
	return nil
}
