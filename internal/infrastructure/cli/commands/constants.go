package commands

// MaxHistoryAnalysisRecords bounds how many records history stats reads.
const MaxHistoryAnalysisRecords = 1000

// Messages
const (
	msgConfigurationValid       = "Configuration valid"
	msgNoDifferencesFromDefault = "No differences from default configuration."
	msgNoHistoryRecorded        = "No history recorded yet."
	msgNoTargets                = "No targets configured. Add them under targets: in the config file."
)
