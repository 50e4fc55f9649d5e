// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemeModes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("dark theme should report IsDark")
	}
	if dark.GlamourStyle() != "dark" {
		t.Errorf("glamour style = %q", dark.GlamourStyle())
	}

	light := NewTheme("light")
	if light.IsDark {
		t.Error("light theme should not report IsDark")
	}
	if light.GlamourStyle() != "light" {
		t.Errorf("glamour style = %q", light.GlamourStyle())
	}
}

func TestThemeStylesInitialized(t *testing.T) {
	theme := NewTheme("dark")

	// Spot check that core styles render without panicking and actually
	// decorate their input.
	if out := theme.HeaderTitle.Render("aihub"); out == "" {
		t.Error("HeaderTitle rendered empty")
	}
	if out := theme.ConvItemSelected.Render("conversation"); out == "" {
		t.Error("ConvItemSelected rendered empty")
	}
	if out := theme.ErrorTitle.Render("error"); out == "" {
		t.Error("ErrorTitle rendered empty")
	}
}
