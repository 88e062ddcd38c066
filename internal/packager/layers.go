package packager

// LayerSpec maps one archive dataset to the EXR pass it is read from.
type LayerSpec struct {
	Dataset  string
	Pass     string
	Channels []string
}

// Layers is the fixed set of datasets written for every frame, in write
// order. Passes with one channel become (H, W) datasets, the rest
// channel-major (C, H, W).
var Layers = []LayerSpec{
	{"combined", "Combined", []string{"R", "G", "B", "A"}},
	{"normal", "Normal", []string{"X", "Y", "Z"}},
	{"vector", "Vector", []string{"X", "Y", "Z", "W"}},
	{"depth", "Mist", []string{"Z"}},
	{"diffuse-col", "DiffCol", rgb},
	{"diffuse-dir", "DiffDir", rgb},
	{"diffuse-ind", "DiffInd", rgb},
	{"glossy-col", "GlossCol", rgb},
	{"glossy-dir", "GlossDir", rgb},
	{"glossy-ind", "GlossInd", rgb},
	{"emission", "Emit", rgb},
	{"environment", "Env", rgb},
	{"roughness", "Roughness", []string{"X"}},
}

var rgb = []string{"R", "G", "B"}

// Prefix returns the EXR channel prefix of the pass inside viewLayer.
func (l LayerSpec) Prefix(viewLayer string) string {
	if viewLayer == "" {
		return l.Pass
	}
	return viewLayer + "." + l.Pass
}

// ChannelNames returns the full EXR channel names of the pass.
func (l LayerSpec) ChannelNames(viewLayer string) []string {
	out := make([]string, len(l.Channels))
	for i, c := range l.Channels {
		out[i] = l.Prefix(viewLayer) + "." + c
	}
	return out
}

// Shape returns the dataset shape for a width x height frame.
func (l LayerSpec) Shape(width, height int) []uint64 {
	if len(l.Channels) == 1 {
		return []uint64{uint64(height), uint64(width)}
	}
	return []uint64{uint64(len(l.Channels)), uint64(height), uint64(width)}
}
