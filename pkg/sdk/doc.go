// Package geotrack provides an embedded Go client for the geotrack
// citation-check engine. It connects directly to the Redis result store and
// the Perplexity API, without going through the HTTP service.
//
//	client, _ := geotrack.New(ctx,
//	    geotrack.WithRedis("localhost:6379", ""),
//	    geotrack.WithPerplexity(os.Getenv("PERPLEXITY_API_KEY")),
//	)
//	defer client.Close()
//
//	summary, _ := client.RunCheck(ctx, "project-id", func(done, total int) {
//	    fmt.Printf("%d/%d\n", done, total)
//	})
//	results, _ := client.Results(ctx, "project-id", "2026-09-01", "2026-09-01")
package geotrack
