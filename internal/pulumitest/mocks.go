// Package pulumitest provides a recording implementation of pulumi.MockResourceMonitor
// with canned outputs for the provider resources and invokes this module uses.
package pulumitest

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pulumi/pulumi/sdk/v3/go/common/resource"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Canned values returned by the default mocks.
const (
	AccountID      = "123456789012"
	Region         = "us-east-1"
	AL2AMI         = "ami-0al2mock"
	UbuntuAMI      = "ami-0ubuntumock"
	VpcID          = "vpc-0mock"
	MockPassword   = "aaaaaaaaBBBBBBBB11111111cDeF2345"
	TunnelCNAME    = "tunnel.cfargotunnel.com"
	ZoneID         = "zone-0mock"
	SubnetIDPrefix = "subnet-"
)

// Resource is one resource registration seen by the mock monitor.
type Resource struct {
	Type         string
	Name         string
	ID           string
	Custom       bool
	Inputs       resource.PropertyMap
	Dependencies []string
	Parent       string
}

// Call is one invoke seen by the mock monitor.
type Call struct {
	Token string
	Args  resource.PropertyMap
}

// Mocks records registrations and invokes. The zero value is ready to use.
type Mocks struct {
	mu        sync.Mutex
	resources []Resource
	calls     []Call

	// CallResults overrides the canned result for an invoke token.
	CallResults map[string]resource.PropertyMap
	// CallErrors makes the invoke with the given token fail.
	CallErrors map[string]error
	// ResourceErrors makes the registration of the named resource fail.
	ResourceErrors map[string]error
}

// New returns an empty recorder.
func New() *Mocks {
	return &Mocks{}
}

// NewResource implements pulumi.MockResourceMonitor.
func (m *Mocks) NewResource(args pulumi.MockResourceArgs) (string, resource.PropertyMap, error) {
	if err, ok := m.ResourceErrors[args.Name]; ok {
		return "", nil, err
	}

	outputs := args.Inputs.Copy()
	id := args.ID
	if id == "" {
		id = args.Name + "_id"
	}

	switch {
	case strings.HasSuffix(args.TypeToken, ":RandomPassword"):
		outputs["result"] = resource.MakeSecret(resource.NewStringProperty(MockPassword))
	case strings.HasSuffix(args.TypeToken, "ec2/subnet:Subnet"):
		outputs["vpcId"] = resource.NewStringProperty(VpcID)
	case strings.HasSuffix(args.TypeToken, "ec2/securityGroup:SecurityGroup"):
		outputs["arn"] = resource.NewStringProperty("arn:aws:ec2:" + Region + ":" + AccountID + ":security-group/" + id)
	case strings.HasSuffix(args.TypeToken, "iam/role:Role"):
		outputs["name"] = resource.NewStringProperty(args.Name + "-name")
		outputs["arn"] = resource.NewStringProperty("arn:aws:iam::" + AccountID + ":role/" + args.Name)
	case strings.HasSuffix(args.TypeToken, "iam/instanceProfile:InstanceProfile"):
		outputs["name"] = resource.NewStringProperty(args.Name + "-name")
		outputs["arn"] = resource.NewStringProperty("arn:aws:iam::" + AccountID + ":instance-profile/" + args.Name)
	case strings.HasSuffix(args.TypeToken, "ec2/instance:Instance"):
		outputs["publicIp"] = resource.NewStringProperty("198.51.100.10")
		outputs["privateIp"] = resource.NewStringProperty("10.0.0.10")
	case strings.HasSuffix(args.TypeToken, ":ResourceGroup"):
		outputs["name"] = resource.NewStringProperty(args.Name + "-name")
		if _, ok := outputs["location"]; !ok {
			outputs["location"] = resource.NewStringProperty("eastus")
		}
	case strings.HasSuffix(args.TypeToken, ":VirtualNetwork"),
		strings.HasSuffix(args.TypeToken, ":Subnet"),
		strings.HasSuffix(args.TypeToken, ":NetworkInterface"):
		outputs["name"] = resource.NewStringProperty(args.Name + "-name")
	case strings.HasSuffix(args.TypeToken, ":ZeroTrustTunnelCloudflared"):
		outputs["cname"] = resource.NewStringProperty(TunnelCNAME)
		outputs["tunnelToken"] = resource.MakeSecret(resource.NewStringProperty("token"))
	}

	m.mu.Lock()
	m.resources = append(m.resources, Resource{
		Type:         args.TypeToken,
		Name:         args.Name,
		ID:           id,
		Custom:       args.Custom,
		Inputs:       args.Inputs,
		Dependencies: args.RegisterRPC.GetDependencies(),
		Parent:       args.RegisterRPC.GetParent(),
	})
	m.mu.Unlock()

	return id, outputs, nil
}

// Call implements pulumi.MockResourceMonitor.
func (m *Mocks) Call(args pulumi.MockCallArgs) (resource.PropertyMap, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Token: args.Token, Args: args.Args})
	m.mu.Unlock()

	if err, ok := m.CallErrors[args.Token]; ok {
		return nil, err
	}
	if res, ok := m.CallResults[args.Token]; ok {
		return res, nil
	}

	switch args.Token {
	case "aws:index/getCallerIdentity:getCallerIdentity":
		return resource.PropertyMap{
			"accountId": resource.NewStringProperty(AccountID),
			"arn":       resource.NewStringProperty("arn:aws:iam::" + AccountID + ":user/operator"),
			"id":        resource.NewStringProperty(AccountID),
			"userId":    resource.NewStringProperty("AIDAMOCK"),
		}, nil
	case "aws:index/getRegion:getRegion":
		return resource.PropertyMap{
			"id":   resource.NewStringProperty(Region),
			"name": resource.NewStringProperty(Region),
		}, nil
	case "aws:ssm/getParameter:getParameter":
		return resource.PropertyMap{
			"id":    args.Args["name"],
			"name":  args.Args["name"],
			"type":  resource.NewStringProperty("String"),
			"value": resource.NewStringProperty(UbuntuAMI),
		}, nil
	case "aws:ec2/getAmi:getAmi":
		return resource.PropertyMap{
			"id":   resource.NewStringProperty(AL2AMI),
			"name": resource.NewStringProperty("amzn2-ami-hvm-2.0.20240101-x86_64-gp2"),
		}, nil
	case "aws:ec2/getSubnet:getSubnet":
		return resource.PropertyMap{
			"id":               resource.NewStringProperty(SubnetIDPrefix + "az"),
			"vpcId":            resource.NewStringProperty(VpcID),
			"availabilityZone": args.Args["availabilityZone"],
		}, nil
	case "cloudflare:index/getZone:getZone":
		return resource.PropertyMap{
			"id":     resource.NewStringProperty(ZoneID),
			"zoneId": resource.NewStringProperty(ZoneID),
			"name":   args.Args["name"],
		}, nil
	}
	return resource.PropertyMap{}, nil
}

// Resources returns a snapshot of every registration in order.
func (m *Mocks) Resources() []Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Resource, len(m.resources))
	copy(out, m.resources)
	return out
}

// Calls returns a snapshot of every invoke in order.
func (m *Mocks) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// ByType returns every registration whose type token ends with suffix.
func (m *Mocks) ByType(suffix string) []Resource {
	var out []Resource
	for _, r := range m.Resources() {
		if strings.HasSuffix(r.Type, suffix) {
			out = append(out, r)
		}
	}
	return out
}

// Named returns the registration with the given logical name.
func (m *Mocks) Named(name string) (Resource, bool) {
	for _, r := range m.Resources() {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// CallsTo returns the invokes made with token.
func (m *Mocks) CallsTo(token string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Token == token {
			out = append(out, c)
		}
	}
	return out
}

// DependsOn reports whether r declared an explicit dependency on the
// resource named name.
func (r Resource) DependsOn(name string) bool {
	for _, urn := range r.Dependencies {
		if strings.HasSuffix(urn, "::"+name) {
			return true
		}
	}
	return false
}

// String returns the string input key, unwrapping secrets. Missing or
// non-string values return "".
func (r Resource) String(key string) string {
	return StringProp(r.Inputs[resource.PropertyKey(key)])
}

// Object returns the nested object input key, unwrapping secrets.
func (r Resource) Object(key string) resource.PropertyMap {
	v := unwrap(r.Inputs[resource.PropertyKey(key)])
	if !v.IsObject() {
		return nil
	}
	return v.ObjectValue()
}

// StringProp unwraps a string property value.
func StringProp(v resource.PropertyValue) string {
	v = unwrap(v)
	if !v.IsString() {
		return ""
	}
	return v.StringValue()
}

func unwrap(v resource.PropertyValue) resource.PropertyValue {
	for v.IsSecret() {
		v = v.SecretValue().Element
	}
	if v.IsOutput() {
		v = v.OutputValue().Element
	}
	return v
}

// Options returns RunErr options wiring m as the mock monitor.
func (m *Mocks) Options(project, stack string) pulumi.RunOption {
	return pulumi.WithMocks(project, stack, m)
}

// Capture holds the resolved value of an output so it can be inspected
// after pulumi.RunErr returns.
type Capture[T any] struct {
	ch chan T
}

// NewCapture returns an empty capture.
func NewCapture[T any]() *Capture[T] {
	return &Capture[T]{ch: make(chan T, 1)}
}

// Watch records the value o resolves to. T must be o's element type.
func (c *Capture[T]) Watch(o pulumi.Output) {
	o.ApplyT(func(v T) T {
		c.ch <- v
		return v
	})
}

// Get waits for the captured value.
func (c *Capture[T]) Get(t testing.TB) T {
	t.Helper()
	select {
	case v := <-c.ch:
		return v
	case <-time.After(10 * time.Second):
		var zero T
		t.Fatal("output never resolved")
		return zero
	}
}
