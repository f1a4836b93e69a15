package tlscore

// SubState names one step of the per-role TLS 1.3 substate machine (spec
// §4.7). The driver loop advances through these in wire order.
// Handshake.stepClient and stepServer have a case for only some of them;
// stepping at a substate without one returns errInvalidFSMTransition.
type SubState uint8

// Client substates (representative TLS 1.3 full handshake, RFC 8446
// section A.1).
const (
	ClientStart SubState = iota
	ClientWaitServerHello
	ClientProcessHelloRetryRequest
	ClientSendSecondClientHello
	ClientProcessServerHello
	ClientProcessChangeCipherSpec
	ClientProcessEncryptedExtensions
	ClientProcessCertificateRequest
	ClientProcessServerCertificate
	ClientProcessServerCertificateVerify
	ClientProcessServerFinished
	ClientSendEndOfEarlyData
	ClientSendClientCertificate
	ClientSendClientCertificateVerify
	ClientCompleteSecondFlight
	ClientDone
)

// Server substates, mirroring the client's (RFC 8446 section A.2).
const (
	ServerStart SubState = iota + 100
	ServerWaitClientHello
	ServerProcessClientHello
	ServerSendHelloRetryRequest
	ServerWaitSecondClientHello
	ServerSendServerHello
	ServerSendEncryptedExtensions
	ServerSendCertificateRequest
	ServerSendServerCertificate
	ServerSendServerCertificateVerify
	ServerSendServerFinished
	ServerReadClientCertificate
	ServerProcessClientCertificateVerify
	ServerProcessClientFinished
	ServerFinishServerHandshake
	ServerDone
)

func (s SubState) String() string {
	names := map[SubState]string{
		ClientStart:                          "client_start",
		ClientWaitServerHello:                "client_wait_server_hello",
		ClientProcessHelloRetryRequest:       "process_hello_retry_request",
		ClientSendSecondClientHello:          "send_second_client_hello",
		ClientProcessServerHello:             "process_server_hello",
		ClientProcessChangeCipherSpec:        "process_change_cipher_spec",
		ClientProcessEncryptedExtensions:     "process_encrypted_extensions",
		ClientProcessCertificateRequest:      "process_certificate_request",
		ClientProcessServerCertificate:       "process_server_certificate",
		ClientProcessServerCertificateVerify: "process_server_certificate_verify",
		ClientProcessServerFinished:          "process_server_finished",
		ClientSendEndOfEarlyData:             "send_end_of_early_data",
		ClientSendClientCertificate:          "send_client_certificate",
		ClientSendClientCertificateVerify:    "send_client_certificate_verify",
		ClientCompleteSecondFlight:           "complete_second_flight",
		ClientDone:                           "done",

		ServerStart:                          "server_start",
		ServerWaitClientHello:                "server_wait_client_hello",
		ServerProcessClientHello:             "process_client_hello",
		ServerSendHelloRetryRequest:          "send_hello_retry_request",
		ServerWaitSecondClientHello:          "wait_second_client_hello",
		ServerSendServerHello:                "send_server_hello",
		ServerSendEncryptedExtensions:        "send_encrypted_extensions",
		ServerSendCertificateRequest:         "send_certificate_request",
		ServerSendServerCertificate:          "send_server_certificate",
		ServerSendServerCertificateVerify:    "send_server_certificate_verify",
		ServerSendServerFinished:             "send_server_finished",
		ServerReadClientCertificate:          "read_client_certificate",
		ServerProcessClientCertificateVerify: "process_client_certificate_verify",
		ServerProcessClientFinished:          "process_client_finished",
		ServerFinishServerHandshake:          "finish_server_handshake",
		ServerDone:                           "done",
	}
	if n, ok := names[s]; ok {
		return n
	}

	return "unknown_state"
}
