// Package apiclient provides a client library for interacting with retrace servers.
//
// It supports recording ingest, session inspection, recording download, share
// link minting, and the admin blob routes. The package includes profile-based
// configuration for managing connections to multiple servers.
//
// # Basic Usage
//
// Create a client and ingest a recording:
//
//	cfg := &apiclient.Config{
//		Server:    "http://localhost:5710",
//		IngestKey: "your-ingest-key",
//	}
//
//	client, err := apiclient.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	session, err := client.Record(ctx, apiclient.RecordOptions{
//		PageURL: "https://app.example.com/checkout",
//		Events:  events,
//	})
//
// # Profile Configuration
//
// Use profiles to manage multiple server configurations:
//
//	configFile, err := apiclient.LoadConfigFile("~/.retrace/config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := apiclient.ConfigFromProfile(profile)
//	client, err := apiclient.New(cfg)
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := apiclient.NewFormatter(jsonOutput, quiet)
//	formatter.FormatSessionList(os.Stdout, result)
package apiclient
