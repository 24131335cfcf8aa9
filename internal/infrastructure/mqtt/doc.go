// Package mqtt publishes SIGPesq domain events to an MQTT broker.
//
// Every successful mutation made through the API (a project created, a grant
// allocated, a production deleted) is announced on
//
//	<prefix>/events/<entity>/<action>
//
// so that external consumers (notification services, dashboards, data
// pipelines) can react without polling the database. Publishing is best
// effort: the HTTP request has already committed when the event is sent, and
// a broker outage only costs the event.
//
// The client also maintains a retained status topic with a Last Will, so
// consumers can tell a crashed instance from a graceful shutdown:
//
//	<prefix>/system/status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishEvent("project", "create", project)
package mqtt
