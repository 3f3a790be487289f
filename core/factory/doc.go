// Package factory builds pluggable modules, such as metrics sinks, from
// configuration. A module is a type name plus a map of raw settings that
// its factory decodes into a typed struct:
//
//	reg := factory.NewRegistry[metrics.Sink]()
//	_ = reg.Register("influx", func(conf map[string]any) (metrics.Sink, error) {
//	    var c influxConf
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInflux(c)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: raw})
package factory
