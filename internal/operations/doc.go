// Package operations runs the validation pipeline: load a dataset, validate
// it against a rule set, write the report, and optionally render charts and
// export the cleaned valid rows.
//
// A Manager executes the steps held by a Registry in dependency order, one at
// a time. Each step reads what earlier steps left in the OperationState and
// adds its own products there. Steps get a per-step timeout; steps returning a
// retryable OperationError are retried with exponential backoff. When a step
// fails, the steps depending on it are skipped. Steps implementing Skipper
// decide per request whether they run.
//
// Rule violations found in the data are not pipeline errors: the run
// completes and the response carries Valid=false with the messages. A rule
// that cannot be applied at all fails the validate step.
//
// Example usage:
//
//	registry, err := operations.NewPipelineRegistry(operations.StepDeps{
//		Logger:   logger,
//		Paths:    paths,
//		Pipeline: cfg.Pipeline,
//	})
//	if err != nil {
//		return err
//	}
//	manager := operations.NewManager(registry, operations.ConfigFromPipeline(cfg.Pipeline), logger)
//	resp, err := manager.Execute(ctx, operations.OperationRequest{
//		InputPath: "data/weather.csv",
//		RulesPath: "rules/weather.yaml",
//		Charts:    true,
//	})
package operations
