// Command curd generates typed query code for the projtrack models.
package main

import (
	"flag"

	"projtrack/config"
	"projtrack/dao/model"
	"projtrack/dao/query"
	"projtrack/logutils"

	"gorm.io/gen"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	outPath := flag.String("out", "./dao/query/gen", "output directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logutils.Log.Fatal(err)
	}
	db, err := query.Open(cfg)
	if err != nil {
		logutils.Log.Fatal(err)
	}
	defer query.Close(db)

	g := gen.NewGenerator(gen.Config{
		OutPath: *outPath,
		// WithDefaultQuery adds a package-level Q, WithQueryInterface the Query interface
		Mode: gen.WithDefaultQuery | gen.WithQueryInterface,
	})
	g.UseDB(db)
	g.ApplyBasic(
		model.Project{},
		model.Assignment{},
		model.Contact{},
		model.ProjectFile{},
	)
	g.Execute()
}
