package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"tabledit/src/config"
	"tabledit/src/directors"
	"tabledit/src/exchange"
	"tabledit/src/models"
	"tabledit/src/settings"
	"tabledit/src/tui"

	"go.uber.org/zap"
)

// printUsage prints helpful usage information
func printUsage() {
	log.Println("tabledit - a document table part editor")
	log.Println("\nUsage:")
	log.Println("  tabledit [options]")
	log.Println("\nOptions:")
	flag.PrintDefaults()

	log.Println("\nExamples:")
	log.Println("  tabledit --datadir=/data --user=alice")
	log.Println("  tabledit --import=estimate.xlsx --merge=overwrite")
}

func main() {
	// Get the global settings instance
	args := settings.GetSettings()

	// Define command line flags that map to the Arguments struct
	flag.StringVar(&args.DataDir, "datadir", "./datafiles", "Directory for per-table configuration files")
	flag.StringVar(&args.LogDir, "logdir", "", "Directory for log files (defaults to the data directory)")
	flag.StringVar(&args.ExportDir, "exportdir", "./exports", "Directory export files are written to")
	flag.StringVar(&args.User, "user", "default", "User name the table configurations are keyed by")
	flag.BoolVar(&args.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&args.Debug, "debug", false, "Enable debug mode")
	flag.StringVar(&args.Version, "version", "0.1.0", "Shows version")

	importFile := flag.String("import", "", "Path to an xlsx file to import on startup")
	mergePolicy := flag.String("merge", "skip-existing", "Import merge policy (skip-existing, overwrite, mark-for-deletion)")

	// Parse the command line
	flag.Parse()

	if err := validateArguments(args, *mergePolicy); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		printUsage()
		os.Exit(1)
	}

	var logger *zap.Logger
	var err error

	if args.Debug {
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stderr"}
		logger, err = z.Build()
	} else {
		// The TUI owns stdout, so logs go to a file in the log directory
		z := zap.NewProductionConfig()
		z.OutputPaths = []string{args.LogDir + "/tabledit.log"}
		logger, err = z.Build()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	zap.ReplaceGlobals(logger)

	store, err := config.NewConfigStore(args.DataDir, sugar)
	if err != nil {
		log.Fatalf("Failed to create configuration store: %v", err)
	}
	manager := directors.NewServiceManager(store, sugar)

	spec := demoEstimateSpec()
	service, err := manager.Open(spec, args.User)
	if err != nil {
		log.Fatalf("Failed to open table part: %v", err)
	}

	if *importFile != "" {
		service.SetImportSource(func() ([]*models.Row, error) {
			rows, rowErrors, err := exchange.ReadFile(*importFile, spec.Columns)
			if err != nil {
				return nil, err
			}
			for _, rowErr := range rowErrors {
				sugar.Warnf("Import row %d skipped: %s", rowErr.RowIndex, rowErr.Message)
			}
			return rows, nil
		}, models.MergePolicy(*mergePolicy))

		result := service.Commands().Execute(directors.CommandImport, service.BuildContext(nil))
		if !result.Success {
			log.Fatalf("Failed to import %s: %s", *importFile, result.Message)
		}
		sugar.Infof("Import of %s: %s", *importFile, result.Message)
	}

	if err := tui.Run(service, fmt.Sprintf("Estimate: %s", spec.TableID)); err != nil {
		log.Fatalf("Terminal UI failed: %v", err)
	}

	if err := manager.Close(spec.TableID, args.User); err != nil {
		sugar.Errorf("Error closing table part: %v", err)
	}
}

// demoEstimateSpec builds a small construction estimate: two work sections
// with priced line items, an amount column computed from quantity and unit
// price, and totals over the numeric columns.
func demoEstimateSpec() directors.TablePartSpec {
	columns := []models.TableColumn{
		{ColumnID: "name", Name: "Work item", Type: models.ColumnText, Editable: true, Width: 28},
		{ColumnID: "quantity", Name: "Qty", Type: models.ColumnNumber, Editable: true, Width: 8, ShowTotal: true},
		{ColumnID: "unit_price", Name: "Unit price", Type: models.ColumnCurrency, Editable: true, Width: 12},
		{ColumnID: "amount", Name: "Amount", Type: models.ColumnCurrency, Editable: false, Width: 12, ShowTotal: true},
	}

	rules := []*models.CalculationRule{
		{
			RuleID:          "amount-from-qty-price",
			SourceColumns:   []string{"quantity", "unit_price"},
			TargetColumn:    "amount",
			CalculationType: models.CalculationMultiply,
			TriggerOnChange: true,
			Precision:       2,
			Enabled:         true,
		},
	}

	totalRules := []*models.TotalCalculationRule{
		{RuleID: "total-amount", Column: "amount", CalculationType: models.TotalSum, Precision: 2, Enabled: true},
		{RuleID: "total-quantity", Column: "quantity", CalculationType: models.TotalSum, Precision: 0, Enabled: true},
	}

	foundation := &models.Row{RowID: "sect-foundation", IsGroup: true,
		Fields: map[string]interface{}{"name": "Foundation"}}
	framing := &models.Row{RowID: "sect-framing", IsGroup: true,
		Fields: map[string]interface{}{"name": "Framing"}}

	rows := []*models.Row{
		foundation,
		{ParentID: foundation.RowID, Fields: map[string]interface{}{
			"name": "Excavation", "quantity": 120.0, "unit_price": 14.5, "amount": 1740.0}},
		{ParentID: foundation.RowID, Fields: map[string]interface{}{
			"name": "Concrete pour", "quantity": 36.0, "unit_price": 185.0, "amount": 6660.0}},
		framing,
		{ParentID: framing.RowID, Fields: map[string]interface{}{
			"name": "Lumber package", "quantity": 1.0, "unit_price": 12400.0, "amount": 12400.0}},
		{ParentID: framing.RowID, Fields: map[string]interface{}{
			"name": "Framing labor", "quantity": 160.0, "unit_price": 45.0, "amount": 7200.0}},
	}

	return directors.TablePartSpec{
		TableID:      "estimate-works",
		DocumentType: "estimate",
		Columns:      columns,
		Rows:         rows,
		Rules:        rules,
		TotalRules:   totalRules,
		KeyColumn:    "name",
	}
}

// validateArguments validates the arguments and returns an error if invalid
func validateArguments(args *settings.Arguments, mergePolicy string) error {
	dirInfo, err := os.Stat(args.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(args.DataDir, 0755); err != nil {
				return fmt.Errorf("could not create data directory: %w", err)
			}
		} else {
			return fmt.Errorf("error accessing data directory: %w", err)
		}
	} else if !dirInfo.IsDir() {
		return fmt.Errorf("data directory path exists but is not a directory: %s", args.DataDir)
	}

	if err := os.MkdirAll(args.ExportDir, 0755); err != nil {
		return fmt.Errorf("could not create export directory: %w", err)
	}

	if args.LogDir == "" {
		args.LogDir = args.DataDir
	} else if err := os.MkdirAll(args.LogDir, 0755); err != nil {
		return fmt.Errorf("could not create log directory: %w", err)
	}

	validPolicies := map[string]bool{
		string(models.MergeSkipExisting):    true,
		string(models.MergeOverwrite):       true,
		string(models.MergeMarkForDeletion): true,
	}
	if !validPolicies[mergePolicy] {
		return fmt.Errorf("invalid merge policy: %s", mergePolicy)
	}

	return nil
}
