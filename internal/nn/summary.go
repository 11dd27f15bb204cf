package nn

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Summary renders a table of the layers in m with their parameter counts,
// followed by trainable and non-trainable totals.
//
// A Sequential is expanded into its layers; any other module is listed
// as a single row.
//
// Example output:
//
//	Model: "encoder"
//	#  Layer                              Params
//	0  Flatten()                          0
//	1  Linear(in=30, out=16, bias=true)   496
//	Total params: 496
//	Trainable params: 496
//	Non-trainable params: 0
func Summary[B tensor.Backend](name string, m Module[B]) string {
	var layers []Module[B]
	if seq, ok := m.(*Sequential[B]); ok {
		layers = seq.Layers()
	} else {
		layers = []Module[B]{m}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Model: %q\n", name)

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLayer\tParams")
	for i, layer := range layers {
		trainable, frozen := CountParameters(layer.Parameters())
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i, describe(layer), trainable+frozen)
	}
	_ = tw.Flush()

	trainable, frozen := CountParameters(m.Parameters())
	fmt.Fprintf(&sb, "Total params: %d\n", trainable+frozen)
	fmt.Fprintf(&sb, "Trainable params: %d\n", trainable)
	fmt.Fprintf(&sb, "Non-trainable params: %d\n", frozen)
	return sb.String()
}

func describe(m any) string {
	if d, ok := m.(Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", m)
}
