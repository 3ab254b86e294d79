package cmd

const (
	outputFlag = "output"
	onlyFlag   = "only"
)

var (
	flagOutput string
	flagOnly   []string
)

func init() {
	runCmd.Flags().StringVarP(&flagOutput, outputFlag, "o", outTypeTable, "output format: table or json")
	runCmd.Flags().StringSliceVar(&flagOnly, onlyFlag, nil, "restrict the run to these scenario names (default: all)")
}
