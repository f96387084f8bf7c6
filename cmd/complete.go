package cmd

import (
	"github.com/etnz/finsight"
	"github.com/etnz/finsight/docs"
	"github.com/etnz/finsight/export"
	"github.com/etnz/finsight/marketplace"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion tree of the commands.
// Run 'COMP_INSTALL=1 finsight' to install it.
func Completion() *complete.Command {
	var modes, types, kinds predict.Set
	for _, m := range finsight.AnalysisModes {
		modes = append(modes, string(m))
	}
	for _, t := range finsight.DocumentTypes {
		types = append(types, string(t))
	}
	for _, k := range export.Kinds {
		kinds = append(kinds, string(k))
	}
	catalog := marketplace.NewCatalog()
	var plugins, integrations predict.Set
	for _, p := range catalog.Plugins() {
		plugins = append(plugins, p.ID)
	}
	for _, i := range catalog.Integrations() {
		integrations = append(integrations, i.ID)
	}

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config":    predict.Files("*.yaml"),
			"workspace": predict.Dirs("*"),
			"v":         predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"analyze": {
				Flags: map[string]complete.Predictor{
					"mode": modes, "type": types, "plugin": plugins, "connect": integrations,
					"no-vault": predict.Nothing, "fetch": predict.Nothing, "json": predict.Nothing,
					"save": predict.Something,
				},
				Args: predict.Files("*"),
			},
			"simulate": {
				Flags: map[string]complete.Predictor{
					"revenue": predict.Something, "cost": predict.Something, "efficiency": predict.Something,
				},
			},
			"chat":  {Args: predict.Files("*")},
			"index": {Flags: map[string]complete.Predictor{"type": types}, Args: predict.Files("*")},
			"vault": {
				Sub: map[string]*complete.Command{
					"list": {}, "context": {}, "search": {Args: predict.Something}, "clear": {},
				},
			},
			"report": {
				Sub: map[string]*complete.Command{
					"list":   {},
					"show":   {Flags: map[string]complete.Predictor{"q": predict.Something, "json": predict.Nothing}},
					"delete": {},
					"export": {Flags: map[string]complete.Predictor{
						"format": predict.Set{"pdf", "xlsx", "md", "html"},
						"kind":   kinds,
						"o":      predict.Files("*"),
					}},
				},
			},
			"plugins": {},
			"connect": {Args: integrations},
			"serve":   {Flags: map[string]complete.Predictor{"addr": predict.Something}},
			"topic":   {Args: topicNames()},
		},
	}
}

func topicNames() predict.Set {
	index, err := docs.Index()
	if err != nil {
		return nil
	}
	names := make(predict.Set, 0, len(index))
	for _, t := range index {
		names = append(names, t.Name)
	}
	return names
}
