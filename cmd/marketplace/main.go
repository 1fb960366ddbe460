package main

import (
	"context"
	"eventers-ticketing-backend/config"
	c "eventers-ticketing-backend/context"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/router"
	"flag"
	l "log"

	"github.com/codegangsta/negroni"
	"github.com/spf13/viper"
)

var (
	version string
)

const defaultCorrelationID = "00000000.00000000"

var ctx context.Context

func init() {
	ctx = c.SetContextWithValue(context.Background(), c.ContextKeyCorrelationID, defaultCorrelationID)
}

func main() {
	cfgPath := flag.String("CONFIG_PATH", "./config.yaml", "Path to config file")
	flag.Parse()

	viper.SetConfigFile(*cfgPath)
	if err := viper.ReadInConfig(); err != nil {
		l.Fatalln("error reading config")
	}
	logger.SetLevel(viper.GetString(config.LogLevel))
	logger.Infof(ctx, "main: starting ticketing backend %s on %s", version, viper.GetString(config.Port))

	muxRouter := router.Router(ctx)

	n := negroni.New()
	n.UseHandler(muxRouter)
	n.Run(viper.GetString(config.Port))
}
