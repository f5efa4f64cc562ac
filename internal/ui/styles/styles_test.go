// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestParseMode(t *testing.T) {
	testCases := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{" Dark ", ModeDark, false},
		{"LIGHT", ModeLight, false},
		{"neon", ModeAuto, true},
	}
	for _, tc := range testCases {
		got, err := ParseMode(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNewTheme_ExplicitModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	if !dark.IsDark || dark.GlamourStyle() != "dark" {
		t.Errorf("dark theme: IsDark = %v, glamour = %q", dark.IsDark, dark.GlamourStyle())
	}

	light := NewTheme(ModeLight)
	if light.IsDark || light.GlamourStyle() != "light" {
		t.Errorf("light theme: IsDark = %v, glamour = %q", light.IsDark, light.GlamourStyle())
	}
}

func TestBubbleWidth(t *testing.T) {
	th := NewTheme(ModeDark)

	testCases := []struct {
		width int
		want  int
	}{
		{10, 20},
		{60, 52},
		{120, 90},
	}
	for _, tc := range testCases {
		th.SetSize(tc.width, 40)
		if got := th.BubbleWidth(); got != tc.want {
			t.Errorf("BubbleWidth() at %d = %d, want %d", tc.width, got, tc.want)
		}
	}
}
