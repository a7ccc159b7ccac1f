package domain

// SummaryRecord is the single item persisted per processed upload.
type SummaryRecord struct {
	ID        string `dynamodbav:"id"`
	Summary   any    `dynamodbav:"summary"`
	RowCount  int    `dynamodbav:"rowCount"`
	Parsed    bool   `dynamodbav:"parsed"`
	CreatedAt string `dynamodbav:"createdAt"`
}
