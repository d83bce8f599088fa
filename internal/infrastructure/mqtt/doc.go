// Package mqtt provides MQTT client connectivity for the DeviceLab controller.
//
// MQTT is the transport behind the Remote State Channel: retained messages
// hold the key/value state tree, subscriptions deliver value changes, and
// the broker's Last Will and Testament is the dead-man's switch that marks
// a node offline when it dies without a clean shutdown.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Credential rejection surfaced as ErrAuthFailed
//   - Acknowledged and fire-and-forget publishing
//   - Topic subscriptions restored on reconnect
//   - Last Will on {prefix}/clients/{node}/alive
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.Remote, cfg.Node.Name)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.Path("url"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("target: %s", payload)
//	        return nil
//	    })
package mqtt
