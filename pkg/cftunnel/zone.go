package cftunnel

import (
	"fmt"

	"github.com/pulumi/pulumi-cloudflare/sdk/v5/go/cloudflare"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// RootZone looks up the zone of a top-level domain by name.
func RootZone(ctx *pulumi.Context, name string) (*cloudflare.LookupZoneResult, error) {
	zone, err := cloudflare.LookupZone(ctx, &cloudflare.LookupZoneArgs{
		Name: pulumi.StringRef(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up zone %s: %w", name, err)
	}
	return zone, nil
}

// ZoneHandle is RootZone wrapped as a resource handle whose value is the zone id.
func ZoneHandle(ctx *pulumi.Context, name string) (*pulumiutil.Handle, error) {
	zone, err := RootZone(ctx, name)
	if err != nil {
		return nil, err
	}
	return pulumiutil.AsResource(ctx, fmt.Sprintf("zone-%s", name), pulumi.String(zone.ZoneId).ToStringOutput())
}

// DNSRecordName is the logical name of the CNAME created for subdomain.
func DNSRecordName(subdomain, zone string) string {
	return fmt.Sprintf("%s-%s-dns", subdomain, zone)
}

// NewTunnelCNAME points subdomain of zoneID at tunnel through a proxied
// CNAME record.
func NewTunnelCNAME(
	ctx *pulumi.Context,
	name string,
	zoneID pulumi.StringInput,
	subdomain string,
	tunnel *cloudflare.ZeroTrustTunnelCloudflared,
	opts ...pulumi.ResourceOption,
) (*cloudflare.Record, error) {
	record, err := cloudflare.NewRecord(ctx, name, &cloudflare.RecordArgs{
		ZoneId:  zoneID,
		Name:    pulumi.String(subdomain),
		Type:    pulumi.String("CNAME"),
		Content: tunnel.Cname,
		Proxied: pulumi.Bool(true),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dns record %s: %w", name, err)
	}
	return record, nil
}
