// Package azurenet composes a minimal Azure network: a resource group, a
// virtual network, one subnet and a network interface attached to it.
package azurenet

import (
	"fmt"

	azurenetwork "github.com/pulumi/pulumi-azure-native-sdk/network/v2"
	azureresources "github.com/pulumi/pulumi-azure-native-sdk/resources/v2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// Defaults applied by NewNetwork.
const (
	DefaultLocation   = "eastus"
	DefaultVnetCIDR   = "10.0.0.0/16"
	DefaultSubnetCIDR = "10.0.1.0/24"

	// IPConfigName names the single ip configuration of the interface.
	IPConfigName = "internal"
)

// NetworkArgs configures NewNetwork. Empty fields take the package defaults.
type NetworkArgs struct {
	Location              string
	VnetCIDRs             []string
	SubnetCIDRs           []string
	AcceleratedNetworking bool
}

func (a NetworkArgs) withDefaults() NetworkArgs {
	if a.Location == "" {
		a.Location = DefaultLocation
	}
	if len(a.VnetCIDRs) == 0 {
		a.VnetCIDRs = []string{DefaultVnetCIDR}
	}
	if len(a.SubnetCIDRs) == 0 {
		a.SubnetCIDRs = []string{DefaultSubnetCIDR}
	}
	return a
}

// Network is the result of NewNetwork. The interface is both the primary
// result and the ready marker.
type Network struct {
	pulumiutil.Result[*azurenetwork.NetworkInterface, *azurenetwork.NetworkInterface]

	ResourceGroup  *azureresources.ResourceGroup
	VirtualNetwork *azurenetwork.VirtualNetwork
	Subnet         *azurenetwork.Subnet
	NicID          pulumi.IDOutput
}

// NewResourceGroup creates <prefix>-rg in location.
func NewResourceGroup(ctx *pulumi.Context, resourcePrefix, location string, opts ...pulumi.ResourceOption) (*azureresources.ResourceGroup, error) {
	rg, err := azureresources.NewResourceGroup(ctx, fmt.Sprintf("%s-rg", resourcePrefix), &azureresources.ResourceGroupArgs{
		Location: pulumi.String(location),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource group: %w", err)
	}
	return rg, nil
}

// NewVirtualNetwork creates <prefix>-vpc in rg spanning cidrs.
func NewVirtualNetwork(ctx *pulumi.Context, resourcePrefix string, rg *azureresources.ResourceGroup, cidrs []string, opts ...pulumi.ResourceOption) (*azurenetwork.VirtualNetwork, error) {
	vnet, err := azurenetwork.NewVirtualNetwork(ctx, fmt.Sprintf("%s-vpc", resourcePrefix), &azurenetwork.VirtualNetworkArgs{
		ResourceGroupName: rg.Name,
		Location:          rg.Location,
		AddressSpace: &azurenetwork.AddressSpaceArgs{
			AddressPrefixes: pulumi.ToStringArray(cidrs),
		},
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual network: %w", err)
	}
	return vnet, nil
}

// NewSubnet creates <prefix>-subnet inside vnet.
func NewSubnet(
	ctx *pulumi.Context,
	resourcePrefix string,
	rg *azureresources.ResourceGroup,
	vnet *azurenetwork.VirtualNetwork,
	cidrs []string,
	opts ...pulumi.ResourceOption,
) (*azurenetwork.Subnet, error) {
	subnet, err := azurenetwork.NewSubnet(ctx, fmt.Sprintf("%s-subnet", resourcePrefix), &azurenetwork.SubnetArgs{
		ResourceGroupName:  rg.Name,
		VirtualNetworkName: vnet.Name,
		AddressPrefixes:    pulumi.ToStringArray(cidrs),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet: %w", err)
	}
	return subnet, nil
}

// NewNIC creates <prefix>-nic with a single dynamically addressed ip
// configuration in subnet.
func NewNIC(
	ctx *pulumi.Context,
	resourcePrefix string,
	rg *azureresources.ResourceGroup,
	subnet *azurenetwork.Subnet,
	acceleratedNetworking bool,
	opts ...pulumi.ResourceOption,
) (*azurenetwork.NetworkInterface, error) {
	nic, err := azurenetwork.NewNetworkInterface(ctx, fmt.Sprintf("%s-nic", resourcePrefix), &azurenetwork.NetworkInterfaceArgs{
		ResourceGroupName:           rg.Name,
		Location:                    rg.Location,
		EnableAcceleratedNetworking: pulumi.Bool(acceleratedNetworking),
		IpConfigurations: azurenetwork.NetworkInterfaceIPConfigurationArray{
			&azurenetwork.NetworkInterfaceIPConfigurationArgs{
				Name:                      pulumi.String(IPConfigName),
				PrivateIPAllocationMethod: pulumi.String("Dynamic"),
				Subnet: &azurenetwork.SubnetTypeArgs{
					Id: subnet.ID(),
				},
			},
		},
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create network interface: %w", err)
	}
	return nic, nil
}

// NewNetwork creates the resource group, virtual network, subnet and
// interface in that order. Only the resource group waits on waitFor; the
// rest follow from data flow.
func NewNetwork(ctx *pulumi.Context, resourcePrefix string, args NetworkArgs, waitFor []pulumi.Resource) (*Network, error) {
	args = args.withDefaults()

	rg, err := NewResourceGroup(ctx, resourcePrefix, args.Location, pulumiutil.DependsOn(waitFor)...)
	if err != nil {
		return nil, err
	}

	vnet, err := NewVirtualNetwork(ctx, resourcePrefix, rg, args.VnetCIDRs)
	if err != nil {
		return nil, err
	}

	subnet, err := NewSubnet(ctx, resourcePrefix, rg, vnet, args.SubnetCIDRs)
	if err != nil {
		return nil, err
	}

	nic, err := NewNIC(ctx, resourcePrefix, rg, subnet, args.AcceleratedNetworking)
	if err != nil {
		return nil, err
	}

	ctx.Log.Debug(fmt.Sprintf("created azure network %s in %s", resourcePrefix, args.Location), &pulumi.LogArgs{Resource: nic})

	return &Network{
		Result:         pulumiutil.Same(nic),
		ResourceGroup:  rg,
		VirtualNetwork: vnet,
		Subnet:         subnet,
		NicID:          nic.ID(),
	}, nil
}
