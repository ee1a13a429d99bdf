package bastion

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"regexp"
	"text/template"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// VNC display settings shared by both boot scripts and the connection script.
const (
	vncDisplay  = 1
	vncGeometry = "1920x1080"
	vncDepth    = 24

	// RemotePort is the VNC port on the instance for display :1.
	RemotePort = 5900 + vncDisplay
	// BasePort is the first local port the connection script tries.
	BasePort = 5901
)

//go:embed scripts/*.tmpl
var scriptFS embed.FS

var scripts = template.Must(template.New("scripts").Option("missingkey=error").ParseFS(scriptFS, "scripts/*.tmpl"))

type userDataParams struct {
	User     string
	Password string
	Display  int
	Geometry string
	Depth    int
}

// RenderUserData renders the boot script for dist. The same password is
// used for the VNC server and for the default user's login.
func RenderUserData(dist OSDistribution, password string) (string, error) {
	name := "al2.sh.tmpl"
	if dist.Normalize() == Ubuntu {
		name = "ubuntu.sh.tmpl"
	}
	return render(name, userDataParams{
		User:     dist.DefaultUser(),
		Password: password,
		Display:  vncDisplay,
		Geometry: vncGeometry,
		Depth:    vncDepth,
	})
}

// UserData is RenderUserData over a deferred password.
func UserData(dist OSDistribution, password pulumi.StringOutput) pulumi.StringOutput {
	return password.ApplyT(func(pw string) (string, error) {
		return RenderUserData(dist, pw)
	}).(pulumi.StringOutput)
}

// ConnectionParams are the values baked into a connection script.
type ConnectionParams struct {
	AccountID  string
	InstanceID string
	Username   string
	Password   string
	ConnectURL string
}

type connectionTemplateParams struct {
	ConnectionParams
	BasePort   int
	RemotePort int
}

// RenderConnectionScript renders the script an operator runs locally to
// open a port forward to the bastion's VNC server. The script refuses to run
// when the active AWS account is not p.AccountID.
func RenderConnectionScript(p ConnectionParams) (string, error) {
	if p.AccountID == "" || p.InstanceID == "" {
		return "", fmt.Errorf("connection script needs an account id and an instance id")
	}
	return render("connect.sh.tmpl", connectionTemplateParams{
		ConnectionParams: p,
		BasePort:         BasePort,
		RemotePort:       RemotePort,
	})
}

// ConnectURL is the console page for connecting to instanceID.
func ConnectURL(region, instanceID string) string {
	return fmt.Sprintf("https://%s.console.aws.amazon.com/ec2/home?region=%s#ConnectToInstance:instanceId=%s", region, region, instanceID)
}

// EncodeCommand base64-encodes a script for transport through stack outputs.
func EncodeCommand(script string) string {
	return base64.StdEncoding.EncodeToString([]byte(script))
}

// DecodeCommand reverses EncodeCommand.
func DecodeCommand(encoded string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode command: %w", err)
	}
	return string(b), nil
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := scripts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

var (
	accountPattern  = regexp.MustCompile(`(?m)^if \[ "\$CURRENT_ID" != "([0-9]+)" \]; then$`)
	instancePattern = regexp.MustCompile(`(?m)^echo "Instance ID: (\S+)"$`)
	urlPattern      = regexp.MustCompile(`(?m)^echo "Connect URL: (\S+)"$`)
	userPattern     = regexp.MustCompile(`(?m)^echo "Username: (\S+)"$`)
)

// ParseConnectionScript recovers the parameters of a rendered connection
// script, except the password.
func ParseConnectionScript(script string) (ConnectionParams, error) {
	var p ConnectionParams
	for _, f := range []struct {
		name    string
		pattern *regexp.Regexp
		dst     *string
	}{
		{"account id", accountPattern, &p.AccountID},
		{"instance id", instancePattern, &p.InstanceID},
		{"connect url", urlPattern, &p.ConnectURL},
		{"username", userPattern, &p.Username},
	} {
		m := f.pattern.FindStringSubmatch(script)
		if m == nil {
			return ConnectionParams{}, fmt.Errorf("connection script has no %s", f.name)
		}
		*f.dst = m[1]
	}
	return p, nil
}
