// Package vae implements the training core of a variational autoencoder
// for multivariate time-series windows.
//
// A Model owns an Encoder and a Decoder supplied by a Builder, three
// running-mean loss trackers, and an optimizer attached with Compile.
//
//	Encoder: X [batch, encode_len, feat_dim] -> (z_mean, z_log_var, z)
//	Decoder: z [batch, latent_dim] -> X̂ [batch, decode_len, feat_dim]
//
// TrainStep and TestStep process one batch each. Training minimizes
//
//	total = reconstruction_weight * reconstruction + kl
//
// with mean-reduced losses; evaluation reports the same terms sum-reduced.
//
// Steps are strictly sequential: a Model is not safe for concurrent use.
package vae
