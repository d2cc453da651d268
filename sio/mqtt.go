/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/chatter/core"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTCouplings is a Couplings for an MQTT client.
//
// A message that arrives on a topic like "chat/in/SESSION" is input
// for session SESSION unless the payload is a JSON Message that names
// its own session.  A reply is published as JSON to
// ReplyTopic/SESSION.
type MQTTCouplings struct {
	Client mqtt.Client

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	// SubTopics is a comma-separated list of subscriptions.  Each
	// can have a QoS suffix (TOPIC:QOS).
	SubTopics string

	// ReplyTopic is the prefix for reply topics.  It can have a
	// QoS suffix.
	ReplyTopic string

	// InTimeout limits how long an incoming message can wait to
	// be queued.
	InTimeout time.Duration

	Logger *zap.Logger

	incoming chan *Message
	outbound chan *core.Reply
	done     chan bool
}

// NewMQTTCouplings makes Couplings for a client with the given
// options.  The options' default publish handler is replaced.
func NewMQTTCouplings(ctx context.Context, opts *mqtt.ClientOptions, subTopics, replyTopic string, logger *zap.Logger) *MQTTCouplings {
	c := &MQTTCouplings{
		Quiesce:    100,
		SubTopics:  subTopics,
		ReplyTopic: replyTopic,
		InTimeout:  time.Second,
		Logger:     logger,

		incoming: make(chan *Message),
		outbound: make(chan *core.Reply),
		done:     make(chan bool),
	}

	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		c.inHandler(ctx, msg.Topic(), msg.Payload())
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	c.Client = mqtt.NewClient(opts)

	return c
}

// sessionFromTopic returns the last level of the topic.
func sessionFromTopic(topic string) string {
	if i := strings.LastIndex(topic, "/"); 0 <= i {
		return topic[i+1:]
	}
	return topic
}

// inHandler handles messages sent to us from the MQTT broker due to
// our subscriptions.
func (c *MQTTCouplings) inHandler(ctx context.Context, topic string, payload []byte) {
	c.Logger.Debug("incoming", zap.String("topic", topic), zap.ByteString("payload", payload))

	m, err := ParseMessage(payload, sessionFromTopic(topic))
	if err != nil {
		c.Logger.Warn("bad payload", zap.String("topic", topic), zap.Error(err))
		return
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		c.Logger.Warn("not forwarding due to ctx.Done()")
	case c.incoming <- m:
	case <-to.C:
		c.Logger.Warn("not forwarding due to stall", zap.String("topic", topic))
	}
}

// Start creates the MQTT session.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	c.Logger.Info("connecting to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(topic)
		if topic == "" {
			continue
		}
		c.Logger.Info("subscribing", zap.String("topic", topic), zap.Uint8("qos", qos))
		if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go c.outLoop(ctx)

	return nil
}

// IO returns the channels that NewMQTTCouplings made.
func (c *MQTTCouplings) IO(ctx context.Context) (chan *Message, chan *core.Reply, chan bool, error) {
	return c.incoming, c.outbound, c.done, nil
}

// outLoop publishes replies.
func (c *MQTTCouplings) outLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case r := <-c.outbound:
			topic, qos := c.replyTopic(r.SessionId)
			js, err := json.Marshal(r)
			if err != nil {
				c.Logger.Error("marshal", zap.Error(err))
				continue
			}
			token := c.Client.Publish(topic, qos, false, js)
			if token.Wait() && token.Error() != nil {
				c.Logger.Error("publish", zap.String("topic", topic), zap.Error(token.Error()))
			}
		}
	}
}

func (c *MQTTCouplings) replyTopic(session string) (string, byte) {
	prefix, qos := parseTopic(c.ReplyTopic)
	return strings.TrimRight(prefix, "/") + "/" + session, qos
}

// Stop terminates the MQTT session.
func (c *MQTTCouplings) Stop(ctx context.Context) error {
	c.Logger.Info("disconnecting")
	c.Client.Disconnect(c.Quiesce)
	close(c.done)
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	qos, err := strconv.ParseUint(s[i+1:], 10, 8)
	if err != nil || 2 < qos {
		return s, 0
	}
	return s[:i], byte(qos)
}
