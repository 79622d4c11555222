package qdrant

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docqa/pkg/vector"
)

var _ = Describe("clientConfig", func() {
	It("should require a URL", func() {
		_, err := clientConfig(Config{})
		Expect(err).To(MatchError(ContainSubstring("qdrant URL is required")))
	})

	It("should reject a URL without a host", func() {
		_, err := clientConfig(Config{URL: "not a url"})
		Expect(err).To(HaveOccurred())
	})

	It("should map the REST port of a cloud URL onto gRPC with TLS", func() {
		cfg, err := clientConfig(Config{
			URL:    "https://abc.eu-central.aws.cloud.qdrant.io:6333",
			APIKey: "secret",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Host).To(Equal("abc.eu-central.aws.cloud.qdrant.io"))
		Expect(cfg.Port).To(Equal(DefaultGRPCPort))
		Expect(cfg.UseTLS).To(BeTrue())
		Expect(cfg.APIKey).To(Equal("secret"))
	})

	It("should default the port for a plain local URL", func() {
		cfg, err := clientConfig(Config{URL: "http://localhost"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Host).To(Equal("localhost"))
		Expect(cfg.Port).To(Equal(DefaultGRPCPort))
		Expect(cfg.UseTLS).To(BeFalse())
	})

	It("should keep an explicit non-REST port", func() {
		cfg, err := clientConfig(Config{URL: "http://qdrant:7334"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Port).To(Equal(7334))
	})
})

var _ = Describe("wrapErr", func() {
	It("should mark unreachable servers as unavailable", func() {
		err := wrapErr("querying points", status.Error(codes.Unavailable, "connection refused"))
		Expect(err).To(MatchError(vector.ErrIndexUnavailable))
	})

	It("should keep other errors unwrappable", func() {
		cause := status.Error(codes.InvalidArgument, "bad vector")
		err := wrapErr("querying points", cause)
		Expect(errors.Is(err, vector.ErrIndexUnavailable)).To(BeFalse())
		Expect(errors.Is(err, cause)).To(BeTrue())
	})
})
