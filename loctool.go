// Package loctool manages localization of UI strings for groups of
// Confluence plugins.
//
// The pipeline collects source-language keyed strings from the Confluence
// REST API, stores them in a per-group SQLite table, drives pending rows
// through a translation provider (DeepL, Google Cloud Translation, or
// OpenAI) in rate-limited batches, and exports the translated rows as a
// locale-tagged Java properties file.
//
// Basic usage:
//
//	import (
//	    loctool "github.com/astrateam-net/confluence-localization-toolkit"
//	    "github.com/astrateam-net/confluence-localization-toolkit/engine"
//	    "github.com/astrateam-net/confluence-localization-toolkit/importer"
//	    "github.com/astrateam-net/confluence-localization-toolkit/provider"
//	    "github.com/astrateam-net/confluence-localization-toolkit/store"
//	)
//
//	func main() {
//	    st, _ := store.Open("db/translations.db")
//	    defer st.Close()
//
//	    rec := importer.New(st)
//	    rec.Import(ctx, importer.Args{GroupKey: "linchpin-suite", Snapshot: snapshot})
//
//	    p := provider.NewDeepLProvider(provider.DeepLConfig{APIKey: key})
//	    eng := engine.New(engine.Deps{Store: st, Provider: p})
//	    eng.Run(ctx, "linchpin-suite")
//	}
//
// Translation state is persisted row by row, so an interrupted run can be
// re-invoked and continues from the rows still pending.
package loctool
