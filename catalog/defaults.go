package catalog

// DefaultAssets returns the built-in asset catalog in registration order.
func DefaultAssets() []AssetConfig {
	return []AssetConfig{
		{
			MatchKey:   "hero_doctor_raw",
			TargetName: "hero-doctor",
			Size:       Size{Width: 2400, Height: 1800},
			Enhancement: Enhancement{
				Brightness: Float(0.9),
				Contrast:   Float(1.2),
				Saturation: Float(0.75),
				Sharpness:  Float(1.0),
			},
			Tint: &Tint{R: 0.95, G: 1.0, B: 1.05},
		},
		{
			MatchKey:   "radar_hud_raw",
			TargetName: "radar-hud",
			Size:       Size{Width: 1120, Height: 800},
			Enhancement: Enhancement{
				Brightness: Float(1.0),
				Contrast:   Float(1.15),
				Saturation: Float(1.2),
				Sharpness:  Float(1.5),
			},
			Tint: &Tint{R: 1.0, G: 1.05, B: 1.05},
		},
		{
			MatchKey:   "target_hud_raw",
			TargetName: "target-hud",
			Size:       Size{Width: 1120, Height: 800},
			Enhancement: Enhancement{
				Brightness: Float(1.0),
				Contrast:   Float(1.15),
				Saturation: Float(1.25),
				Sharpness:  Float(1.5),
			},
			Tint: &Tint{R: 1.05, G: 1.0, B: 1.05},
		},
		{
			MatchKey:   "execute_hud_raw",
			TargetName: "execute-hud",
			Size:       Size{Width: 1120, Height: 800},
			Enhancement: Enhancement{
				Brightness: Float(1.0),
				Contrast:   Float(1.15),
				Saturation: Float(1.2),
				Sharpness:  Float(1.5),
			},
			Tint: &Tint{R: 1.0, G: 1.05, B: 1.05},
		},
		{
			MatchKey:    "avatar_dr_roberto_raw",
			TargetName:  "avatar-dr-roberto",
			Size:        Size{Width: 512, Height: 512},
			AvatarMode:  true,
			Enhancement: Enhancement{Sharpness: Float(1.2)},
		},
		{
			MatchKey:    "avatar_dra_juliana_raw",
			TargetName:  "avatar-dra-juliana",
			Size:        Size{Width: 512, Height: 512},
			AvatarMode:  true,
			Enhancement: Enhancement{Sharpness: Float(1.2)},
		},
		{
			MatchKey:   "waiting_room_raw",
			TargetName: "waiting-room",
			Size:       Size{Width: 2800, Height: 1200},
			Enhancement: Enhancement{
				Brightness: Float(0.9),
				Contrast:   Float(1.1),
				Saturation: Float(0.7),
			},
			Tint: &Tint{R: 0.9, G: 0.95, B: 1.05},
		},
		{
			MatchKey:   "corridor_light_raw",
			TargetName: "corridor-light",
			Size:       Size{Width: 2800, Height: 1200},
			Enhancement: Enhancement{
				Brightness: Float(0.95),
				Contrast:   Float(1.2),
				Saturation: Float(1.1),
			},
		},
		{
			MatchKey:   "clock_motion_raw",
			TargetName: "clock-motion",
			Size:       Size{Width: 1200, Height: 1200},
			Enhancement: Enhancement{
				Contrast:  Float(1.1),
				Sharpness: Float(1.2),
			},
		},
		{
			MatchKey:   "data_dissolving_raw",
			TargetName: "data-dissolving",
			Size:       Size{Width: 2800, Height: 1000},
			Enhancement: Enhancement{
				Contrast:   Float(1.2),
				Saturation: Float(1.2),
			},
			Tint: &Tint{R: 1.1, G: 0.9, B: 1.1},
		},
	}
}

// DefaultRegistry builds the registry of DefaultAssets.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultAssets()...)
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return r
}

var (
	wideBreakpoints   = []Breakpoint{{400, "small"}, {800, "medium"}, {1200, "large"}}
	narrowBreakpoints = []Breakpoint{{300, "small"}, {600, "medium"}, {900, "large"}}
)

// DefaultResponsive returns the built-in responsive size table.
func DefaultResponsive() ResponsiveTable {
	table := ResponsiveTable{}
	for _, name := range []string{"hero.webp", "cta.webp", "the_fall.webp"} {
		table[name] = append([]Breakpoint(nil), wideBreakpoints...)
	}
	for _, name := range []string{"radar.webp", "target.webp", "shot.webp"} {
		table[name] = append([]Breakpoint(nil), narrowBreakpoints...)
	}
	return table
}
