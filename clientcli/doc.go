// Package clientcli provides a client library for the boxgate media gateway.
//
// It covers listing, uploading, downloading and deleting box contents, and
// checking or resolving redirect keys. Every request carries the shared
// access token in the t query parameter. Profiles in a YAML file keep the
// endpoint and token for several gateways.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{
//		Endpoint: "https://media.example.com",
//		Token:    os.Getenv("BOXCTL_TOKEN"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	box, _ := clientcli.ParseBoxArg("7")
//	result, err := client.Upload(ctx, box, []string{"intro.mp4"})
//
// # Profile Configuration
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetDefaultProfile()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, result)
package clientcli
