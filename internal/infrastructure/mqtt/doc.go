// Package mqtt provides the MQTT client used to publish camera and network
// state and to receive intents from home-automation systems.
//
// The client reconnects automatically, restores subscriptions, and keeps a
// retained online/offline status (with LWT) under {prefix}/status.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.PublishRetained(topics.NetworkState(42), payload)
package mqtt
