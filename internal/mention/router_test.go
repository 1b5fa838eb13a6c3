package mention

import (
	"reflect"
	"testing"

	"github.com/haggleworks/negotiator/pkg/types"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple-lowercase", "alice", "alice"},
		{"mixed-case", "FreshFarms", "freshfarms"},
		{"spaces-dropped", "Fresh Farms", "freshfarms"},
		{"punctuation-dropped", "Bob Co.", "bobco"},
		{"underscores-kept", "seller_1", "seller_1"},
		{"underscore-runs-collapsed", "a__b___c", "a_b_c"},
		{"leading-trailing-underscores-trimmed", "_edge_", "edge"},
		{"digits-kept", "Shop24", "shop24"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeHandle(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeHandle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMentions(t *testing.T) {
	sellers := []types.SellerProfile{
		{SellerID: "seller_1", DisplayName: "Fresh Farms"},
		{SellerID: "seller_2", DisplayName: "Bob Co."},
		{SellerID: "seller_3", DisplayName: "seller_3"},
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single-mention",
			text: "Hey @FreshFarms, can you do 9.50?",
			want: []string{"seller_1"},
		},
		{
			name: "order-preserved",
			text: "@BobCo beats @FreshFarms today.",
			want: []string{"seller_2", "seller_1"},
		},
		{
			name: "duplicates-collapse-to-first",
			text: "@FreshFarms then @BobCo then @FreshFarms again",
			want: []string{"seller_1", "seller_2"},
		},
		{
			name: "unknown-handles-ignored",
			text: "@nobody @FreshFarms @ghost",
			want: []string{"seller_1"},
		},
		{
			name: "case-insensitive",
			text: "@freshfarms please",
			want: []string{"seller_1"},
		},
		{
			name: "underscore-handle",
			text: "@seller_3 what is your best price?",
			want: []string{"seller_3"},
		},
		{
			name: "underscored-variant-of-multi-word-name",
			text: "@Fresh_Farms still in?",
			want: []string{"seller_1"},
		},
		{
			name: "underscored-variant-of-punctuated-name",
			text: "@bob_co what about you?",
			want: []string{"seller_2"},
		},
		{
			name: "no-mentions",
			text: "Anyone willing to go lower?",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMentions(tt.text, sellers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMentions(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSelectTargets(t *testing.T) {
	active := []string{"seller_1", "seller_2", "seller_3"}

	tests := []struct {
		name     string
		mentions []string
		fallback bool
		want     []string
	}{
		{
			name:     "intersection-preserves-mention-order",
			mentions: []string{"seller_3", "seller_1"},
			want:     []string{"seller_3", "seller_1"},
		},
		{
			name:     "inactive-mentions-filtered",
			mentions: []string{"seller_9", "seller_2"},
			want:     []string{"seller_2"},
		},
		{
			name:     "empty-with-fallback-targets-all",
			mentions: nil,
			fallback: true,
			want:     []string{"seller_1", "seller_2", "seller_3"},
		},
		{
			name:     "empty-without-fallback-targets-none",
			mentions: nil,
			want:     nil,
		},
		{
			name:     "all-inactive-with-fallback",
			mentions: []string{"seller_9"},
			fallback: true,
			want:     []string{"seller_1", "seller_2", "seller_3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectTargets(tt.mentions, active, tt.fallback)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectTargets(%v) = %v, want %v", tt.mentions, got, tt.want)
			}
		})
	}
}
