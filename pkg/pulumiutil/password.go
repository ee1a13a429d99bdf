package pulumiutil

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/pulumi/pulumi-random/sdk/v4/go/random"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Password constraints. The generated value is alphanumeric only.
const (
	PasswordLength     = 32
	PasswordMinLower   = 8
	PasswordMinUpper   = 8
	PasswordMinNumeric = 8
)

// ErrInvalidPassword is returned by ValidatePassword.
var ErrInvalidPassword = errors.New("invalid password")

// NewPassword registers a random password keyed on name. The keeper is the
// name itself, so the secret only regenerates when the name changes.
func NewPassword(ctx *pulumi.Context, name string, opts ...pulumi.ResourceOption) (*random.RandomPassword, error) {
	pw, err := random.NewRandomPassword(ctx, name, &random.RandomPasswordArgs{
		Length: pulumi.Int(PasswordLength),
		Keepers: pulumi.StringMap{
			"string": pulumi.String(name),
		},
		Special:    pulumi.Bool(false),
		Upper:      pulumi.Bool(true),
		Lower:      pulumi.Bool(true),
		Numeric:    pulumi.Bool(true),
		MinLower:   pulumi.Int(PasswordMinLower),
		MinUpper:   pulumi.Int(PasswordMinUpper),
		MinNumeric: pulumi.Int(PasswordMinNumeric),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create password %s: %w", name, err)
	}
	return pw, nil
}

// Password is NewPassword returning only the secret result.
func Password(ctx *pulumi.Context, name string, opts ...pulumi.ResourceOption) (pulumi.StringOutput, error) {
	pw, err := NewPassword(ctx, name, opts...)
	if err != nil {
		return pulumi.StringOutput{}, err
	}
	return pw.Result, nil
}

// ValidatePassword checks s against the generator's guarantees.
func ValidatePassword(s string) error {
	if len(s) != PasswordLength {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidPassword, len(s), PasswordLength)
	}
	var lower, upper, digit int
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			return fmt.Errorf("%w: non-ascii character %q", ErrInvalidPassword, r)
		case unicode.IsLower(r):
			lower++
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			digit++
		default:
			return fmt.Errorf("%w: non-alphanumeric character %q", ErrInvalidPassword, r)
		}
	}
	if lower < PasswordMinLower || upper < PasswordMinUpper || digit < PasswordMinNumeric {
		return fmt.Errorf("%w: %d lower, %d upper, %d digits", ErrInvalidPassword, lower, upper, digit)
	}
	return nil
}
