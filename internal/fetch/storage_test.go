package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareURL(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		key         string
		expectedURL string
		wantHeaders bool
	}{
		{
			name:        "non supabase passes through",
			input:       "https://example.com/a file.pdf",
			key:         "k",
			expectedURL: "https://example.com/a file.pdf",
		},
		{
			name:        "public object path is escaped",
			input:       "https://abc.supabase.co/storage/v1/object/public/golden examples/user 1/report (final).pdf",
			key:         "k",
			expectedURL: "https://abc.supabase.co/storage/v1/object/public/golden%20examples/user%201/report%20%28final%29.pdf",
			wantHeaders: true,
		},
		{
			name:        "signed url keeps query",
			input:       "https://abc.supabase.co/storage/v1/object/sign/bucket/doc.pdf?token=t",
			key:         "k",
			expectedURL: "https://abc.supabase.co/storage/v1/object/sign/bucket/doc.pdf?token=t",
			wantHeaders: true,
		},
		{
			name:        "no key no headers",
			input:       "https://abc.supabase.co/storage/v1/object/public/bucket/doc.pdf",
			expectedURL: "https://abc.supabase.co/storage/v1/object/public/bucket/doc.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, headers := PrepareURL(tt.input, tt.key)
			assert.Equal(t, tt.expectedURL, got)
			if tt.wantHeaders {
				assert.Equal(t, tt.key, headers["apikey"])
				assert.Equal(t, "Bearer "+tt.key, headers["Authorization"])
			} else {
				assert.Empty(t, headers)
			}
		})
	}
}

func TestIsSupabaseStorage(t *testing.T) {
	assert.True(t, IsSupabaseStorage("https://proj.supabase.co/storage/v1/object/public/x"))
	assert.False(t, IsSupabaseStorage("https://example.com/x"))
	assert.False(t, IsSupabaseStorage("://bad"))
}
