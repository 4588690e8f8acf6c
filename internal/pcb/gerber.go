package pcb

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/circuit-studio/engine/internal/circuit"
)

// GerberLayer is a single layer in the fabrication output stack.
type GerberLayer struct {
	Name          string `json:"name"`
	FileExtension string `json:"file_extension"`
	Description   string `json:"description"`
	Polarity      string `json:"polarity"`
	Function      string `json:"function"`
}

// DrillSpec describes the excellon drill file parameters.
type DrillSpec struct {
	FileExtension    string  `json:"file_extension"`
	FormatType       string  `json:"format_type"`
	Units            string  `json:"units"`
	Plated           bool    `json:"plated"`
	MinHoleMM        float64 `json:"min_hole_mm"`
	ViaDrillMM       float64 `json:"via_drill_mm"`
	ViaAnnularRingMM float64 `json:"via_annular_ring_mm"`
}

// BoardOutline is a rectangular outline with rounded corners.
type BoardOutline struct {
	WidthMM        float64 `json:"width_mm"`
	HeightMM       float64 `json:"height_mm"`
	CornerRadiusMM float64 `json:"corner_radius_mm"`
	OriginXMM      float64 `json:"origin_x_mm"`
	OriginYMM      float64 `json:"origin_y_mm"`
}

// FabricationNotes carry the parameters a fab house needs beyond the
// layer files themselves.
type FabricationNotes struct {
	Material            string   `json:"material"`
	SurfaceFinish       string   `json:"surface_finish"`
	BoardThicknessMM    float64  `json:"board_thickness_mm"`
	MinTraceMM          float64  `json:"min_trace_mm"`
	MinSpaceMM          float64  `json:"min_space_mm"`
	MinDrillMM          float64  `json:"min_drill_mm"`
	SolderMaskColor     string   `json:"solder_mask_color"`
	SilkscreenColor     string   `json:"silkscreen_color"`
	ImpedanceControlled bool     `json:"impedance_controlled"`
	IPCClass            string   `json:"ipc_class"`
	Notes               []string `json:"notes"`
}

// GerberJob is the complete export specification. It does not contain
// rendered Gerber data; it drives generation through kicad-cli.
type GerberJob struct {
	ProjectName    string           `json:"project_name"`
	Timestamp      string           `json:"timestamp"`
	BoardOutline   BoardOutline     `json:"board_outline"`
	Layers         []GerberLayer    `json:"layers"`
	Drill          DrillSpec        `json:"drill"`
	Fabrication    FabricationNotes `json:"fabrication"`
	ComponentCount int              `json:"component_count"`
	NetCount       int              `json:"net_count"`
	LayerCount     int              `json:"layer_count"`
}

func standardLayers(layerCount int) []GerberLayer {
	layers := []GerberLayer{
		{Name: "F.Cu", FileExtension: ".gtl", Description: "Front copper", Polarity: "positive", Function: "Copper,L1,Top"},
		{Name: "F.Mask", FileExtension: ".gts", Description: "Front solder mask", Polarity: "negative", Function: "SolderMask,Top"},
		{Name: "F.Paste", FileExtension: ".gtp", Description: "Front solder paste", Polarity: "positive", Function: "Paste,Top"},
		{Name: "F.SilkS", FileExtension: ".gto", Description: "Front silkscreen", Polarity: "positive", Function: "Legend,Top"},
	}
	for i := 2; i < layerCount; i++ {
		layers = append(layers, GerberLayer{
			Name:          fmt.Sprintf("In%d.Cu", i-1),
			FileExtension: fmt.Sprintf(".g%d", i),
			Description:   fmt.Sprintf("Internal copper layer %d", i-1),
			Polarity:      "positive",
			Function:      fmt.Sprintf("Copper,L%d,Inr", i),
		})
	}
	layers = append(layers,
		GerberLayer{Name: "B.Cu", FileExtension: ".gbl", Description: "Back copper", Polarity: "positive", Function: fmt.Sprintf("Copper,L%d,Bot", layerCount)},
		GerberLayer{Name: "B.Mask", FileExtension: ".gbs", Description: "Back solder mask", Polarity: "negative", Function: "SolderMask,Bot"},
		GerberLayer{Name: "B.Paste", FileExtension: ".gbp", Description: "Back solder paste", Polarity: "positive", Function: "Paste,Bot"},
		GerberLayer{Name: "B.SilkS", FileExtension: ".gbo", Description: "Back silkscreen", Polarity: "positive", Function: "Legend,Bot"},
		GerberLayer{Name: "Edge.Cuts", FileExtension: ".gm1", Description: "Board outline", Polarity: "positive", Function: "Profile,NP"},
	)
	return layers
}

// estimateBoardSize assumes roughly 8x8mm per component plus routing
// overhead, rounded up to 5mm increments with a 25mm floor.
func estimateBoardSize(g *circuit.Graph) BoardOutline {
	area := float64(len(g.Nodes)) * 64
	side := math.Sqrt(area)*1.2 + 10
	if side < 25.0 {
		side = 25.0
	}
	side = math.Round(side/5) * 5

	return BoardOutline{WidthMM: side, HeightMM: side, CornerRadiusMM: 1.5}
}

// PrepareGerberExport builds the export job for a circuit and its
// design rules.
func PrepareGerberExport(g *circuit.Graph, constraints *Constraints, projectName string) *GerberJob {
	if projectName == "" {
		projectName = "circuit_studio_pcb"
	}

	// parse "6.0 mil (0.15 mm)"
	traceMM := 0.15
	if i := strings.Index(constraints.TraceWidth, "("); i >= 0 {
		mmPart := strings.TrimSpace(strings.Split(constraints.TraceWidth[i+1:], "mm")[0])
		if v, err := strconv.ParseFloat(mmPart, 64); err == nil {
			traceMM = v
		}
	}
	if traceMM < 0.1 {
		traceMM = 0.1
	}

	layerCount := constraints.LayerCount
	fab := FabricationNotes{
		Material:            "FR-4 TG150",
		SurfaceFinish:       "HASL Lead-Free",
		BoardThicknessMM:    1.6,
		MinTraceMM:          traceMM,
		MinSpaceMM:          traceMM,
		MinDrillMM:          0.3,
		SolderMaskColor:     "green",
		SilkscreenColor:     "white",
		ImpedanceControlled: layerCount >= 4,
		IPCClass:            "Class 2",
		Notes:               append([]string(nil), constraints.ThermalNotes...),
	}

	copperOz := 1.0
	if i := strings.Index(constraints.CopperThickness, "oz"); i > 0 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(constraints.CopperThickness[:i]), 64); err == nil {
			copperOz = v
		}
	}
	if copperOz >= 2.0 {
		fab.Notes = append(fab.Notes, fmt.Sprintf("Heavy copper: %goz, verify with fab house", copperOz))
	}

	netNames := map[string]bool{}
	for _, e := range g.Edges {
		netNames[e.NetName] = true
	}

	return &GerberJob{
		ProjectName:  projectName,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		BoardOutline: estimateBoardSize(g),
		Layers:       standardLayers(layerCount),
		Drill: DrillSpec{
			FileExtension:    ".drl",
			FormatType:       "excellon",
			Units:            "mm",
			Plated:           true,
			MinHoleMM:        0.3,
			ViaDrillMM:       0.3,
			ViaAnnularRingMM: 0.15,
		},
		Fabrication:    fab,
		ComponentCount: len(g.Nodes),
		NetCount:       len(netNames),
		LayerCount:     layerCount,
	}
}

// ToJSON serializes the job for file output or the API.
func (j *GerberJob) ToJSON() (string, error) {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FabSummary renders a human-readable one-page fab summary.
func (j *GerberJob) FabSummary() string {
	var b strings.Builder
	b.WriteString("FABRICATION OUTPUT SUMMARY\n\n")
	fmt.Fprintf(&b, "Project:    %s\n", j.ProjectName)
	fmt.Fprintf(&b, "Generated:  %s\n", j.Timestamp)
	fmt.Fprintf(&b, "Components: %d\n", j.ComponentCount)
	fmt.Fprintf(&b, "Nets:       %d\n\n", j.NetCount)

	fmt.Fprintf(&b, "Board size: %g x %g mm, %g mm corner radius\n\n", j.BoardOutline.WidthMM, j.BoardOutline.HeightMM, j.BoardOutline.CornerRadiusMM)

	fmt.Fprintf(&b, "Layers (%d):\n", j.LayerCount)
	for _, l := range j.Layers {
		fmt.Fprintf(&b, "  %-12s %-5s %s\n", l.Name, l.FileExtension, l.Description)
	}

	fmt.Fprintf(&b, "\nDrill: %s, min hole %g mm, via drill %g mm\n\n", j.Drill.FormatType, j.Drill.MinHoleMM, j.Drill.ViaDrillMM)

	f := j.Fabrication
	fmt.Fprintf(&b, "Material:   %s\n", f.Material)
	fmt.Fprintf(&b, "Thickness:  %g mm\n", f.BoardThicknessMM)
	fmt.Fprintf(&b, "Finish:     %s\n", f.SurfaceFinish)
	fmt.Fprintf(&b, "Mask:       %s\n", f.SolderMaskColor)
	fmt.Fprintf(&b, "Silkscreen: %s\n", f.SilkscreenColor)
	fmt.Fprintf(&b, "Min trace:  %g mm\n", f.MinTraceMM)
	fmt.Fprintf(&b, "IPC Class:  %s\n", f.IPCClass)

	if len(f.Notes) > 0 {
		b.WriteString("\nNotes:\n")
		for _, n := range f.Notes {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}
	return b.String()
}
