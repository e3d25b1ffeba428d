// Package services is the layer between the HTTP handlers and the validation
// pipeline. Handlers decode requests and render responses; services own the
// rest: turning uploads into pipeline requests, running them, and mapping
// failures onto application error types.
//
// Services take their collaborators through constructors and log through an
// injected *slog.Logger:
//
//	manager := operations.NewManager(registry, operations.NewConfig(), logger)
//	svc := services.NewValidationService(manager, validation.DefaultRegistry(), cfg.Pipeline, logger)
//	resp, err := svc.Validate(ctx, services.ValidateInput{
//	    Filename: "weather.csv",
//	    Data:     file,
//	    Rules:    rulesYAML,
//	})
package services
