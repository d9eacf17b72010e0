package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	const (
		a   = "https://a.example"
		b   = "https://b.example"
		def = "https://d.example"
	)

	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"listed", a, a},
		{"listed with trailing slash", a + "/", a},
		{"default itself", def, def},
		{"not listed", "https://c.example", def},
		{"empty", "", def},
		{"suffix attack", "https://a.example.evil.com", def},
		{"prefix attack", "https://evil.a.example", def},
		{"different scheme", "http://a.example", def},
		{"case differs", "https://A.example", def},
		{"double slash", a + "//", def},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.request, def, []string{a, b}))
		})
	}
}

func TestPolicy_DefaultTrailingSlashStripped(t *testing.T) {
	p := NewPolicy("https://d.example/", "https://a.example/")

	assert.Equal(t, "https://d.example", p.Default())
	assert.Equal(t, "https://d.example", p.Resolve("https://c.example"))
	assert.Equal(t, "https://a.example", p.Resolve("https://a.example"))
}

func TestPolicy_Allows(t *testing.T) {
	p := NewPolicy("http://localhost:5173", "https://sonar-demoapp.vercel.app", "http://localhost:5173", "")

	assert.True(t, p.Allows("http://localhost:5173"))
	assert.True(t, p.Allows("https://sonar-demoapp.vercel.app/"))
	assert.False(t, p.Allows(""))
	assert.False(t, p.Allows("http://localhost:3000"))
	assert.Equal(t, []string{"http://localhost:5173", "https://sonar-demoapp.vercel.app"}, p.Allowed())
}
