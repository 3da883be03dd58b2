package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPIRequestCount        = "APIRequestCount"
	MetricAPILatency             = "APILatency"
	MetricSecretRetrieval        = "SecretRetrieval"
	MetricSecretRetrievalLatency = "SecretRetrievalLatency"

	// Dimension Keys
	DimMethod   = "Method"
	DimEndpoint = "Endpoint"
	DimStatus   = "Status"
	DimOutcome  = "Outcome"

	// OutcomeSuccess is the Outcome dimension value for a successful lookup.
	// Failed lookups use the error kind name as the Outcome value.
	OutcomeSuccess = "success"
)
