// Package utils exposes reusable helpers consumed by multiple commands.
//
// It houses the ConfigurationLoader (Viper with duration and slice decode hooks),
// the zap LoggerFactory, and the accessor for values carried on command contexts.
package utils
