package common

import (
	"errors"
	"strings"
	"testing"
)

func TestMaskString(t *testing.T) {
	m := NewMasker()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "postgres url",
			input: "postgres://app:s3cret@db:5432/main?sslmode=disable",
			want:  "postgres://app:***MASKED***@db:5432/main?sslmode=disable",
		},
		{
			name:  "mysql dsn",
			input: "app:s3cret@tcp(db:3306)/main?parseTime=true",
			want:  "app:***MASKED***@tcp(db:3306)/main?parseTime=true",
		},
		{
			name:  "keyword dsn",
			input: "host=db user=app password=s3cret dbname=main",
			want:  "host=db user=app password=***MASKED*** dbname=main",
		},
		{
			name:  "quoted password",
			input: `pwd: "a b c" next`,
			want:  `pwd: ***MASKED*** next`,
		},
		{
			name:  "no userinfo",
			input: "postgres://db:5432/main",
			want:  "postgres://db:5432/main",
		},
		{
			name:  "sqlite file dsn",
			input: "file:/var/lib/app.db?_pragma=busy_timeout(5000)",
			want:  "file:/var/lib/app.db?_pragma=busy_timeout(5000)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.MaskString(tt.input); got != tt.want {
				t.Errorf("MaskString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskValue(t *testing.T) {
	m := NewMasker()
	if got := m.MaskValue("Password", "hunter2"); got != maskedValue {
		t.Errorf("MaskValue(Password) = %v", got)
	}
	if got := m.MaskValue("dsn", "postgres://u:p@h/db"); got != "postgres://u:***MASKED***@h/db" {
		t.Errorf("MaskValue(dsn) = %v", got)
	}
	err := errors.New("dial postgres://u:p@h/db: refused")
	if got, _ := m.MaskValue("error", err).(string); strings.Contains(got, ":p@") {
		t.Errorf("MaskValue(error) leaked the password: %v", got)
	}
	if got := m.MaskValue("count", 3); got != 3 {
		t.Errorf("MaskValue(count) = %v, want 3", got)
	}
}

func TestMasker_Disabled(t *testing.T) {
	m := NewMasker()
	m.SetEnabled(false)
	if m.IsEnabled() {
		t.Fatal("IsEnabled() = true after SetEnabled(false)")
	}
	in := "password=s3cret"
	if got := m.MaskString(in); got != in {
		t.Errorf("MaskString() = %q with masking off", got)
	}
	if got := m.MaskValue("password", "s3cret"); got != "s3cret" {
		t.Errorf("MaskValue() = %v with masking off", got)
	}
}

func TestGlobalMasking(t *testing.T) {
	defer EnableMasking(true)

	in := "postgres://app:s3cret@db/main"
	if got := MaskSensitiveData(in); strings.Contains(got, "s3cret") {
		t.Errorf("MaskSensitiveData() = %q", got)
	}
	EnableMasking(false)
	if GetGlobalMasker().IsEnabled() {
		t.Error("global masker still enabled")
	}
	if got := MaskSensitiveData(in); got != in {
		t.Errorf("MaskSensitiveData() = %q with masking off", got)
	}
}
