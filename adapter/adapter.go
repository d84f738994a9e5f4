// Package adapter provides the Transport implementations shipped with the
// module. Importing it registers them with the root registry:
//
//   - "socketcan": Linux SocketCAN via go.einride.tech/can
//   - "slcan": Canable/Lawicel serial-line CAN via go.bug.st/serial
//   - "loopback": in-memory transport for tests and demos
package adapter
