package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// File is the JSON wire schema for a simulation input file. Every
// physical field is optional (pointer-typed); an absent field inherits
// NewDefault()'s value.
type File struct {
	Width       *float64 `json:"width"`
	Length      *float64 `json:"length"`
	Thickness   *float64 `json:"thickness"`
	Temperature *float64 `json:"temperature"`
	Timestep    *float64 `json:"timestep"`

	NumTimesteps *int `json:"num_timesteps"`
	NumPhonons   *int `json:"num_phonons"`
	NumNodes     *int `json:"num_nodes"`

	Material     string   `json:"material"`
	Density      *float64 `json:"density"`
	SpecificHeat *float64 `json:"specific_heat"`

	RoughnessWall      *float64 `json:"roughness_wall"`
	RoughnessHole      *float64 `json:"roughness_hole"`
	RoughnessPillar    *float64 `json:"roughness_pillar"`
	RoughnessTop       *float64 `json:"roughness_top"`
	RoughnessBottom    *float64 `json:"roughness_bottom"`
	RoughnessPillarTop *float64 `json:"roughness_pillar_top"`

	SidewallRight  *bool `json:"sidewall_right"`
	SidewallLeft   *bool `json:"sidewall_left"`
	SidewallTop    *bool `json:"sidewall_top"`
	SidewallBottom *bool `json:"sidewall_bottom"`

	SourceX  *float64 `json:"source_x"`
	SourceY  *float64 `json:"source_y"`
	SourceWx *float64 `json:"source_width_x"`
	SourceWy *float64 `json:"source_width_y"`

	AngularDistribution string `json:"angular_distribution"`

	HotSide  *SideFlags `json:"hot_side"`
	ColdSide *SideFlags `json:"cold_side"`

	HolesEnabled   *bool          `json:"holes_enabled"`
	PillarsEnabled *bool          `json:"pillars_enabled"`
	Obstacles      []ObstacleFile `json:"obstacles"`

	InternalScatteringEnabled *bool    `json:"internal_scattering_enabled"`
	GrayApproximation         *bool    `json:"gray_approximation"`
	MFPGray                   *float64 `json:"mfp_gray"`

	MapNx     *int `json:"map_nx"`
	MapNy     *int `json:"map_ny"`
	NumFrames *int `json:"num_frames"`

	Detectors [3]*DetectorFile `json:"detectors"`

	Sampling string `json:"sampling"` // "planck" | "sweep"
	NumSweep *int   `json:"num_sweep"`
}

// SideFlags is the wire representation of a SidePosition.
type SideFlags struct {
	Top    bool `json:"top"`
	Bottom bool `json:"bottom"`
	Right  bool `json:"right"`
	Left   bool `json:"left"`
}

// DetectorFile is the wire representation of one detector window.
type DetectorFile struct {
	CenterX float64 `json:"center_x"`
	Size    float64 `json:"size"`
}

// ObstacleFile is the wire representation of one obstacle entry. Shape
// selects which of the remaining fields are meaningful, mirroring the
// closed tagged variant of config.Obstacle.
type ObstacleFile struct {
	Shape           string  `json:"shape"` // circle_hole | rect_hole | tri_down_hole | tri_up_hole | circle_pillar
	CenterX         float64 `json:"center_x"`
	CenterY         float64 `json:"center_y"`
	Radius          float64 `json:"radius"`
	Lx              float64 `json:"lx"`
	Ly              float64 `json:"ly"`
	PillarHeight    float64 `json:"pillar_height"`
	PillarWallAngle float64 `json:"pillar_wall_angle"`
}

// LoadJSON loads a simulation configuration from a JSON file and
// validates it. Mirrors the reference implementation's fail-fast config
// loading: any error is returned before the caller runs a single flight.
func LoadJSON(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg := NewDefault()
	if err := ApplyFile(cfg, &f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyFile layers a parsed File onto an existing Config, validating
// each field as it is applied.
func ApplyFile(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.Width != nil {
		if *f.Width <= 0 {
			return fmt.Errorf("width must be > 0")
		}
		dst.Width = *f.Width
	}
	if f.Length != nil {
		if *f.Length <= 0 {
			return fmt.Errorf("length must be > 0")
		}
		dst.Length = *f.Length
	}
	if f.Thickness != nil {
		if *f.Thickness <= 0 {
			return fmt.Errorf("thickness must be > 0")
		}
		dst.Thickness = *f.Thickness
	}
	if f.Temperature != nil {
		if *f.Temperature <= 0 {
			return fmt.Errorf("temperature must be > 0")
		}
		dst.Temperature = *f.Temperature
	}
	if f.Timestep != nil {
		if *f.Timestep <= 0 {
			return fmt.Errorf("timestep must be > 0")
		}
		dst.Timestep = *f.Timestep
	}
	if f.NumTimesteps != nil {
		if *f.NumTimesteps <= 0 {
			return fmt.Errorf("num_timesteps must be > 0")
		}
		dst.NumTimesteps = *f.NumTimesteps
	}
	if f.NumPhonons != nil {
		if *f.NumPhonons <= 0 {
			return fmt.Errorf("num_phonons must be > 0")
		}
		dst.NumPhonons = *f.NumPhonons
	}
	if f.NumNodes != nil {
		if *f.NumNodes <= 0 {
			return fmt.Errorf("num_nodes must be > 0")
		}
		dst.NumNodes = *f.NumNodes
	}

	if f.Material != "" {
		switch f.Material {
		case "silicon":
			dst.Material = Silicon
			dst.Dispersion = SiliconDispersion()
			dst.Relaxation = SiliconRelaxation()
		case "custom":
			dst.Material = Custom
		default:
			return fmt.Errorf("unknown material %q (expected silicon|custom)", f.Material)
		}
	}
	if f.Density != nil {
		if *f.Density <= 0 {
			return fmt.Errorf("density must be > 0")
		}
		dst.Density = *f.Density
	}
	if f.SpecificHeat != nil {
		if *f.SpecificHeat <= 0 {
			return fmt.Errorf("specific_heat must be > 0")
		}
		dst.SpecificHeat = *f.SpecificHeat
	}

	if f.RoughnessWall != nil {
		if *f.RoughnessWall < 0 {
			return fmt.Errorf("roughness_wall must be >= 0")
		}
		dst.Roughness.Wall = *f.RoughnessWall
	}
	if f.RoughnessHole != nil {
		if *f.RoughnessHole < 0 {
			return fmt.Errorf("roughness_hole must be >= 0")
		}
		dst.Roughness.Hole = *f.RoughnessHole
	}
	if f.RoughnessPillar != nil {
		if *f.RoughnessPillar < 0 {
			return fmt.Errorf("roughness_pillar must be >= 0")
		}
		dst.Roughness.Pillar = *f.RoughnessPillar
	}
	if f.RoughnessTop != nil {
		if *f.RoughnessTop < 0 {
			return fmt.Errorf("roughness_top must be >= 0")
		}
		dst.Roughness.Top = *f.RoughnessTop
	}
	if f.RoughnessBottom != nil {
		if *f.RoughnessBottom < 0 {
			return fmt.Errorf("roughness_bottom must be >= 0")
		}
		dst.Roughness.Bottom = *f.RoughnessBottom
	}
	if f.RoughnessPillarTop != nil {
		if *f.RoughnessPillarTop < 0 {
			return fmt.Errorf("roughness_pillar_top must be >= 0")
		}
		dst.Roughness.PillarTop = *f.RoughnessPillarTop
	}

	if f.SidewallRight != nil {
		dst.Sidewalls.Right = *f.SidewallRight
	}
	if f.SidewallLeft != nil {
		dst.Sidewalls.Left = *f.SidewallLeft
	}
	if f.SidewallTop != nil {
		dst.Sidewalls.Top = *f.SidewallTop
	}
	if f.SidewallBottom != nil {
		dst.Sidewalls.Bottom = *f.SidewallBottom
	}

	if f.SourceX != nil {
		dst.Source.X = *f.SourceX
	}
	if f.SourceY != nil {
		if *f.SourceY < 0 {
			return fmt.Errorf("source_y must be >= 0")
		}
		dst.Source.Y = *f.SourceY
	}
	if f.SourceWx != nil {
		if *f.SourceWx < 0 {
			return fmt.Errorf("source_width_x must be >= 0")
		}
		dst.Source.Wx = *f.SourceWx
	}
	if f.SourceWy != nil {
		if *f.SourceWy < 0 {
			return fmt.Errorf("source_width_y must be >= 0")
		}
		dst.Source.Wy = *f.SourceWy
	}

	if f.AngularDistribution != "" {
		dist, err := parseAngularDistribution(f.AngularDistribution)
		if err != nil {
			return err
		}
		dst.AngularDistribution = dist
	}

	if f.HotSide != nil {
		dst.HotSide = SidePosition(*f.HotSide)
	}
	if f.ColdSide != nil {
		dst.ColdSide = SidePosition(*f.ColdSide)
	}

	if f.HolesEnabled != nil {
		dst.HolesEnabled = *f.HolesEnabled
	}
	if f.PillarsEnabled != nil {
		dst.PillarsEnabled = *f.PillarsEnabled
	}
	if f.Obstacles != nil {
		obstacles := make([]Obstacle, 0, len(f.Obstacles))
		for i, o := range f.Obstacles {
			ob, err := parseObstacle(o)
			if err != nil {
				return fmt.Errorf("obstacles[%d]: %w", i, err)
			}
			obstacles = append(obstacles, ob)
		}
		dst.Obstacles = obstacles
	}

	if f.InternalScatteringEnabled != nil {
		dst.InternalScatteringEnabled = *f.InternalScatteringEnabled
	}
	if f.GrayApproximation != nil {
		dst.GrayApproximation = *f.GrayApproximation
	}
	if f.MFPGray != nil {
		if *f.MFPGray <= 0 {
			return fmt.Errorf("mfp_gray must be > 0")
		}
		dst.MFPGray = *f.MFPGray
	}

	if f.MapNx != nil {
		if *f.MapNx <= 0 {
			return fmt.Errorf("map_nx must be > 0")
		}
		dst.MapNx = *f.MapNx
	}
	if f.MapNy != nil {
		if *f.MapNy <= 0 {
			return fmt.Errorf("map_ny must be > 0")
		}
		dst.MapNy = *f.MapNy
	}
	if f.NumFrames != nil {
		if *f.NumFrames <= 0 {
			return fmt.Errorf("num_frames must be > 0")
		}
		dst.NumFrames = *f.NumFrames
	}

	for i, d := range f.Detectors {
		if d == nil {
			continue
		}
		if d.Size < 0 {
			return fmt.Errorf("detectors[%d].size must be >= 0", i)
		}
		dst.Detectors[i] = Detector{CenterX: d.CenterX, Size: d.Size}
	}

	if f.Sampling != "" {
		switch f.Sampling {
		case "planck":
			dst.SamplingMode = PlanckMode
		case "sweep":
			dst.SamplingMode = SweepMode
		default:
			return fmt.Errorf("unknown sampling mode %q (expected planck|sweep)", f.Sampling)
		}
	}
	if f.NumSweep != nil {
		if *f.NumSweep <= 0 {
			return fmt.Errorf("num_sweep must be > 0")
		}
		dst.NumSweep = *f.NumSweep
	}

	return nil
}

func parseAngularDistribution(tag string) (AngularDistribution, error) {
	switch tag {
	case "random_up":
		return RandomUp, nil
	case "random_down":
		return RandomDown, nil
	case "random_right":
		return RandomRight, nil
	case "random_left":
		return RandomLeft, nil
	case "lambert":
		return Lambert, nil
	case "directional":
		return Directional, nil
	default:
		return 0, fmt.Errorf("unknown angular_distribution %q", tag)
	}
}

func parseObstacle(o ObstacleFile) (Obstacle, error) {
	switch o.Shape {
	case "circle_hole":
		if o.Radius <= 0 {
			return Obstacle{}, fmt.Errorf("circle_hole radius must be > 0")
		}
		return Obstacle{Kind: CircleHole, CenterX: o.CenterX, CenterY: o.CenterY, Radius: o.Radius}, nil
	case "rect_hole":
		if o.Lx <= 0 || o.Ly <= 0 {
			return Obstacle{}, fmt.Errorf("rect_hole lx/ly must be > 0")
		}
		return Obstacle{Kind: RectHole, CenterX: o.CenterX, CenterY: o.CenterY, Lx: o.Lx, Ly: o.Ly}, nil
	case "tri_down_hole":
		if o.Lx <= 0 || o.Ly <= 0 {
			return Obstacle{}, fmt.Errorf("tri_down_hole lx/ly must be > 0")
		}
		return Obstacle{Kind: TriDownHole, CenterX: o.CenterX, CenterY: o.CenterY, Lx: o.Lx, Ly: o.Ly}, nil
	case "tri_up_hole":
		if o.Lx <= 0 || o.Ly <= 0 {
			return Obstacle{}, fmt.Errorf("tri_up_hole lx/ly must be > 0")
		}
		return Obstacle{Kind: TriUpHole, CenterX: o.CenterX, CenterY: o.CenterY, Lx: o.Lx, Ly: o.Ly}, nil
	case "circle_pillar":
		if o.Radius <= 0 {
			return Obstacle{}, fmt.Errorf("circle_pillar radius must be > 0")
		}
		if o.PillarHeight <= 0 {
			return Obstacle{}, fmt.Errorf("circle_pillar pillar_height must be > 0")
		}
		if o.PillarWallAngle <= 0 {
			return Obstacle{}, fmt.Errorf("circle_pillar pillar_wall_angle must be > 0")
		}
		return Obstacle{
			Kind: CirclePillar, CenterX: o.CenterX, CenterY: o.CenterY,
			Radius: o.Radius, PillarHeight: o.PillarHeight, PillarWallAngle: o.PillarWallAngle,
		}, nil
	default:
		return Obstacle{}, fmt.Errorf("unknown shape %q", o.Shape)
	}
}

// Validate checks cross-field invariants that are not caught field-by-
// field by ApplyFile: source rectangle containment, and sides not
// assigned conflicting hot/cold/wall roles at once (mirrors the
// reference implementation's check_parameter_validity).
func Validate(cfg *Config) error {
	if cfg.Source.Y > cfg.Length {
		return fmt.Errorf("source_y %g exceeds length %g", cfg.Source.Y, cfg.Length)
	}
	if cfg.Source.Y-cfg.Source.Wy/2 < 0 {
		return fmt.Errorf("source_width_y too large for source_y %g", cfg.Source.Y)
	}
	if cfg.Source.X > cfg.Width/2 {
		return fmt.Errorf("source_x %g exceeds width/2 %g", cfg.Source.X, cfg.Width/2)
	}
	if cfg.Source.Wx > cfg.Width {
		return fmt.Errorf("source_width_x %g exceeds width %g", cfg.Source.Wx, cfg.Width)
	}

	type side struct {
		name            string
		wall, hot, cold bool
	}
	sides := []side{
		{"top", cfg.Sidewalls.Top, cfg.HotSide.Top, cfg.ColdSide.Top},
		{"bottom", cfg.Sidewalls.Bottom, cfg.HotSide.Bottom, cfg.ColdSide.Bottom},
		{"right", cfg.Sidewalls.Right, cfg.HotSide.Right, cfg.ColdSide.Right},
		{"left", cfg.Sidewalls.Left, cfg.HotSide.Left, cfg.ColdSide.Left},
	}
	for _, s := range sides {
		roles := 0
		if s.wall {
			roles++
		}
		if s.hot {
			roles++
		}
		if s.cold {
			roles++
		}
		if roles > 1 {
			return fmt.Errorf("%s side is assigned multiple roles (wall/hot/cold)", s.name)
		}
	}
	if !cfg.ColdSide.Top && !cfg.ColdSide.Bottom && !cfg.ColdSide.Right && !cfg.ColdSide.Left {
		return fmt.Errorf("no cold side assigned")
	}

	for i, o := range cfg.Obstacles {
		switch o.Kind {
		case CircleHole, CirclePillar:
			if o.Radius <= 0 {
				return fmt.Errorf("obstacles[%d]: radius must be > 0", i)
			}
		case RectHole, TriDownHole, TriUpHole:
			if o.Lx <= 0 || o.Ly <= 0 {
				return fmt.Errorf("obstacles[%d]: lx/ly must be > 0", i)
			}
		default:
			return fmt.Errorf("obstacles[%d]: unknown kind %d", i, o.Kind)
		}
	}

	return nil
}
