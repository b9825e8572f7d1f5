package models

import "testing"

func TestJobPostingHasContact(t *testing.T) {
	tests := []struct {
		name    string
		contact string
		want    bool
	}{
		{"valid address", "hr@spital.ch", true},
		{"empty", "", false},
		{"no at sign", "hr.spital.ch", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := JobPosting{ContactEmail: tt.contact}
			if got := j.HasContact(); got != tt.want {
				t.Errorf("HasContact() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobPostingKey(t *testing.T) {
	if (JobPosting{ID: 7}).Key() != "7" {
		t.Error("key should be the string form of the id")
	}
	if !(JobPosting{ID: ManualJobID}).IsManual() {
		t.Error("manual id not recognized")
	}
}

func TestMarkAppliedUnion(t *testing.T) {
	p := NewUserProfile("user@example.com")

	p.MarkApplied("3")
	p.MarkApplied("3")
	p.MarkApplied("5")

	if !p.Applied("3") || !p.Applied("5") {
		t.Error("applied ids missing from set")
	}
	if p.Applied("4") {
		t.Error("unapplied id reported as applied")
	}
	if len(p.AppliedJobIDs) != 2 {
		t.Errorf("set size = %d, want 2", len(p.AppliedJobIDs))
	}
}

func TestMarkAppliedNilMap(t *testing.T) {
	p := &UserProfile{Email: "user@example.com"}
	p.MarkApplied("1")
	if !p.Applied("1") {
		t.Error("MarkApplied on zero-value profile lost the id")
	}
}
