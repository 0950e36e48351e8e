package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intinstall/intinstall/internal/security"
)

func TestMaskSecrets(t *testing.T) {
	tests := map[string]struct {
		text     string
		expected string
	}{
		"License keys should keep first and last characters only": {
			text:     "license_key=ABCD1234WXYZ",
			expected: "license_key=A**********Z",
		},

		"Exported secrets should be masked": {
			text:     "export NRIA_LICENSE_KEY=abcdef123456",
			expected: "export NRIA_LICENSE_KEY=a**********6",
		},

		"Passwords in key colon value form should be masked": {
			text:     "password: supersecret",
			expected: "password: s*********t",
		},

		"Short values should be fully masked": {
			text:     "token=ab",
			expected: "token=****",
		},

		"Quoted values should keep their quotes": {
			text:     `api_key="ABCD1234WXYZ"`,
			expected: `api_key="A**********Z"`,
		},

		"Non sensitive keys should be left alone": {
			text:     "redis_host=localhost redis_port=6379",
			expected: "redis_host=localhost redis_port=6379",
		},

		"Multiple secrets in one text should all be masked": {
			text:     "license_key=ABCD1234WXYZ\npassword=hunter22",
			expected: "license_key=A**********Z\npassword=h******2",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			masked := security.MaskSecrets(test.text)

			assert.Equal(test.expected, masked)
		})
	}
}

func TestMaskSecretsNeverLeaksOriginal(t *testing.T) {
	assert := assert.New(t)

	masked := security.MaskSecrets("license_key=ABCD1234WXYZ")

	assert.NotContains(masked, "ABCD1234WXYZ")
}

func TestIsSensitiveKey(t *testing.T) {
	tests := map[string]struct {
		key       string
		sensitive bool
	}{
		"License keys are sensitive":       {key: "license_key", sensitive: true},
		"API keys are sensitive":           {key: "api_key", sensitive: true},
		"Passwords are sensitive":          {key: "redis_password", sensitive: true},
		"Tokens are sensitive":             {key: "AUTH_TOKEN", sensitive: true},
		"Host names are not sensitive":     {key: "redis_host", sensitive: false},
		"Ports are not sensitive":          {key: "redis_port", sensitive: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.sensitive, security.IsSensitiveKey(test.key))
		})
	}
}
